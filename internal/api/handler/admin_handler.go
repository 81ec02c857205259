package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deathkiller/api/internal/core/ports"
)

// AdminHandler serves account lookups restricted to administrators. The role
// gate lives in the route's access pipeline, not here.
type AdminHandler struct {
	authService ports.AuthService
}

func NewAdminHandler(authService ports.AuthService) *AdminHandler {
	return &AdminHandler{authService: authService}
}

// UserByID returns any account by id.
//
// @Summary      Look up a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  successResponse{data=userData}
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /admin/users/{id} [get]
func (h *AdminHandler) UserByID(c echo.Context) error {
	user, err := h.authService.UserByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, success("", userData{User: newUserView(user, true)}))
}
