package ports

import (
	"context"

	"github.com/deathkiller/api/internal/core/domain"
)

// RegisterInput carries a pre-validated registration request.
type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	User  *domain.User
	Token string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UserByID(ctx context.Context, userID string) (*domain.User, error)
}
