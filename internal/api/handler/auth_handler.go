package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deathkiller/api/internal/api/metrics"
	"github.com/deathkiller/api/internal/core/domain"
	"github.com/deathkiller/api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email" example:"a@x.com"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72" example:"secret1"`
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=20" example:"alice"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"a@x.com"`
	Password string `json:"password" validate:"required" example:"secret1"`
}

// Register creates a new user account with the "user" role and returns a token.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  successResponse{data=authData}
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	recordAttempt("register", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, success("User registered successfully", authData{
		User:  newUserView(res.User, false),
		Token: res.Token,
	}))
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  successResponse{data=authData}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	recordAttempt("login", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, success("Login successful", authData{
		User:  newUserView(res.User, false),
		Token: res.Token,
	}))
}

// Profile returns the authenticated caller's account.
//
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  successResponse{data=userData}
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Profile(c.Request().Context(), id.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, success("", userData{User: newUserView(user, true)}))
}

// bindAndValidate decodes the JSON body into req and runs the registered
// validator. A body that cannot be decoded is a validation failure.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.WrapError(domain.ErrValidation, err)
	}
	return c.Validate(req)
}

func recordAttempt(operation string, err error) {
	clientFault := err != nil && domain.KindOf(err) != domain.KindInternal
	metrics.AuthAttemptsTotal.WithLabelValues(operation, metrics.ResultOf(err, clientFault)).Inc()
}
