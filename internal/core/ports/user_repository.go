package ports

import (
	"context"

	"github.com/deathkiller/api/internal/core/domain"
)

// UserRepository is the user store contract. Lookups return
// domain.ErrUserNotFound when nothing matches; Create returns
// domain.ErrEmailTaken when the store's uniqueness constraint on email rejects
// the insert.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindCredentialByEmail is the only read that returns the password hash.
	FindCredentialByEmail(ctx context.Context, email string) (*domain.UserCredential, error)
	Create(ctx context.Context, user *domain.User, passwordHash string) (*domain.User, error)
	Ping(ctx context.Context) error
}
