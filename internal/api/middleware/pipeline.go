package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deathkiller/api/internal/core/domain"
	"github.com/deathkiller/api/internal/core/ports"
)

// Stage is one step of an access pipeline. Returning nil lets the request
// continue to the next stage; any error rejects it and is rendered by the
// API error handler.
type Stage func(c echo.Context) error

// Pipeline runs stages in order and calls the route handler only when every
// stage accepted the request.
func Pipeline(stages ...Stage) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, stage := range stages {
				if err := stage(c); err != nil {
					return err
				}
			}
			return next(c)
		}
	}
}

// Protect builds the authenticate-then-authorize pipeline. With no roles any
// authenticated caller is admitted.
func Protect(tokens ports.TokenService, log zerolog.Logger, roles ...domain.Role) echo.MiddlewareFunc {
	stages := []Stage{Authenticate(tokens, log)}
	if len(roles) > 0 {
		stages = append(stages, RequireRole(roles...))
	}
	return Pipeline(stages...)
}
