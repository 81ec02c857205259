// Package metrics defines and registers all custom Prometheus metrics for the
// auth API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package init
// through promauto and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// Result label values shared by the counters below.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// ── Account metrics ───────────────────────────────────────────────────────────

// AuthAttemptsTotal counts register and login outcomes.
// Labels:
//   - operation: "register" or "login"
//   - result: "success", "failure" (client-caused, e.g. bad credentials or a
//     taken email) or "error" (internal failure)
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attempts_total",
		Help:      "Total number of register/login attempts, by operation and result.",
	},
	[]string{"operation", "result"},
)

// ── Access metrics ────────────────────────────────────────────────────────────

// TokenRejectionsTotal counts requests refused by the access middleware.
// Label:
//   - reason: "missing", "expired", "signature", "malformed", "claims",
//     "invalid" or "forbidden"
var TokenRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rejections_total",
		Help:      "Total number of requests rejected by the access middleware, by reason.",
	},
	[]string{"reason"},
)

// ResultOf maps a handler outcome to a result label. clientFault reports
// whether the error was caused by the caller.
func ResultOf(err error, clientFault bool) string {
	switch {
	case err == nil:
		return ResultSuccess
	case clientFault:
		return ResultFailure
	default:
		return ResultError
	}
}
