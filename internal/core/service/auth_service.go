package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deathkiller/api/internal/core/domain"
	"github.com/deathkiller/api/internal/core/ports"
)

// dummyPassword is hashed once at construction so that a login for an unknown
// email pays the same verification cost as a login with a wrong password.
const dummyPassword = "dummy-password-for-timing"

// AuthService implements registration, login and profile lookup.
type AuthService struct {
	users     ports.UserRepository
	hasher    ports.PasswordHasher
	tokens    ports.TokenService
	logger    zerolog.Logger
	dummyHash string
}

func NewAuthService(users ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenService, logger zerolog.Logger) (*AuthService, error) {
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("auth service: prepare dummy hash: %w", err)
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// Register creates a user with role "user" and returns it with a fresh token.
// The existence pre-check gives the common case a clean answer; the store's
// unique constraint decides concurrent registrations.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrValidation
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.ErrEmailTaken
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		Email:    email,
		Username: in.Username,
		Role:     domain.RoleUser,
	}, hash)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			s.logger.Info().Str("email", email).Msg("registration lost uniqueness race")
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("register: create user: %w", err)
	}

	token, err := s.tokens.Issue(created)
	if err != nil {
		return nil, fmt.Errorf("register: issue token: %w", err)
	}

	s.logger.Info().Str("user_id", created.ID).Msg("user registered")
	return &ports.AuthResult{User: created, Token: token}, nil
}

// Login verifies credentials. An unknown email and a wrong password produce the
// same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	cred, err := s.users.FindCredentialByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.hasher.Verify(password, s.dummyHash)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: lookup credential: %w", err)
	}

	if !s.hasher.Verify(password, cred.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(cred.User)
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	s.logger.Debug().Str("user_id", cred.User.ID).Msg("user logged in")
	return &ports.AuthResult{User: cred.User, Token: token}, nil
}

// Profile returns the authenticated user's current record.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.find(ctx, userID)
}

// UserByID returns any user's record; callers gate it behind the admin role.
func (s *AuthService) UserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.find(ctx, userID)
}

func (s *AuthService) find(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUserNotFound
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", userID, err)
	}
	return user, nil
}
