package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deathkiller/api/internal/core/domain"
)

// ctxIdentity returns the identity attached by the Authenticate stage. A
// route mounted without the access pipeline has none and is treated as
// unauthenticated.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok || id.ID == "" {
		return domain.Identity{}, domain.ErrMissingToken
	}
	return id, nil
}
