package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deathkiller/api/internal/core/domain"
	"github.com/deathkiller/api/internal/infrastructure/security/token"
)

const testSecret = "middleware-test-secret-0123456789abcdef"

func newTokenService(t *testing.T, secret string, opts ...token.Option) *token.Service {
	t.Helper()
	svc, err := token.New(token.Config{Secret: secret}, opts...)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return svc
}

func issue(t *testing.T, svc *token.Service, role domain.Role) string {
	t.Helper()
	signed, err := svc.Issue(&domain.User{ID: "user-1", Email: "a@x.com", Role: role})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return signed
}

func runStage(t *testing.T, stage Stage, header string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	return c, stage(c)
}

func TestAuthenticate_ValidToken(t *testing.T) {
	svc := newTokenService(t, testSecret)
	stage := Authenticate(svc, zerolog.Nop())

	c, err := runStage(t, stage, "Bearer "+issue(t, svc, domain.RoleUser))
	if err != nil {
		t.Fatalf("expected token to be accepted, got %v", err)
	}

	id, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		t.Fatalf("identity not attached to request context")
	}
	if id.ID != "user-1" || id.Email != "a@x.com" || id.Role != domain.RoleUser {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestAuthenticate_SchemeIsCaseInsensitive(t *testing.T) {
	svc := newTokenService(t, testSecret)

	if _, err := runStage(t, Authenticate(svc, zerolog.Nop()), "bearer "+issue(t, svc, domain.RoleUser)); err != nil {
		t.Fatalf("expected lowercase scheme to be accepted, got %v", err)
	}
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	stage := Authenticate(newTokenService(t, testSecret), zerolog.Nop())

	for _, header := range []string{"", "Token abc", "Bearer", "Bearer   "} {
		if _, err := runStage(t, stage, header); !errors.Is(err, domain.ErrMissingToken) {
			t.Fatalf("header %q: expected ErrMissingToken, got %v", header, err)
		}
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	svc := newTokenService(t, testSecret)
	stage := Authenticate(svc, zerolog.Nop())

	other := newTokenService(t, "a-completely-different-secret-value!!")
	past := func() time.Time { return time.Now().Add(-30 * 24 * time.Hour) }
	expired := newTokenService(t, testSecret, token.WithClock(past))

	cases := map[string]string{
		"garbage":      "not-a-token",
		"other secret": issue(t, other, domain.RoleAdmin),
		"expired":      issue(t, expired, domain.RoleUser),
	}
	for name, raw := range cases {
		c, err := runStage(t, stage, "Bearer "+raw)
		if !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
		if _, ok := domain.IdentityFromContext(c.Request().Context()); ok {
			t.Fatalf("%s: identity must not be attached on rejection", name)
		}
	}
}
