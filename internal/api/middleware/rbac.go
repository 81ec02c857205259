package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/deathkiller/api/internal/api/metrics"
	"github.com/deathkiller/api/internal/core/domain"
)

// RequireRole enforces role-based access control. It must run after
// Authenticate; a request without an identity is forbidden.
func RequireRole(roles ...domain.Role) Stage {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c echo.Context) error {
		id, ok := domain.IdentityFromContext(c.Request().Context())
		if !ok {
			metrics.TokenRejectionsTotal.WithLabelValues("forbidden").Inc()
			return domain.ErrForbidden
		}
		if _, ok := allowed[id.Role]; !ok {
			metrics.TokenRejectionsTotal.WithLabelValues("forbidden").Inc()
			return domain.ErrForbidden
		}
		return nil
	}
}
