package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deathkiller/api/internal/api/metrics"
	"github.com/deathkiller/api/internal/core/domain"
	"github.com/deathkiller/api/internal/core/ports"
	"github.com/deathkiller/api/internal/infrastructure/security/token"
)

// Authenticate validates the bearer token and attaches the caller's identity
// to the request context.
//
// A missing or non-bearer Authorization header yields domain.ErrMissingToken
// (401). A token that fails verification yields domain.ErrInvalidToken (403).
// The precise rejection reason is logged, never returned.
func Authenticate(tokens ports.TokenService, log zerolog.Logger) Stage {
	return func(c echo.Context) error {
		raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			metrics.TokenRejectionsTotal.WithLabelValues("missing").Inc()
			return domain.ErrMissingToken
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			reason := token.Reason(err)
			metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()

			ev := log.Debug().
				Str("reason", reason).
				Str("path", c.Path()).
				Err(err)
			if unverified, derr := tokens.Decode(raw); derr == nil {
				ev = ev.Str("unverified_sub", unverified.UserID)
			}
			ev.Msg("token rejected")

			return domain.ErrInvalidToken
		}

		req := c.Request()
		c.SetRequest(req.WithContext(domain.WithIdentity(req.Context(), claims.Identity())))
		return nil
	}
}

// bearerToken extracts the credential from "Bearer <token>". The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
