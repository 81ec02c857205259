// Package token issues and verifies the HS256-signed identity tokens handed out
// at register and login.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/deathkiller/api/internal/core/domain"
)

const (
	DefaultTTL      = 7 * 24 * time.Hour
	DefaultIssuer   = "deathkiller-api"
	DefaultAudience = "deathkiller-app"
)

// ErrInvalid is returned for every verification failure. The underlying jwt
// error is joined to it for logging; callers must not expose the difference.
var ErrInvalid = errors.New("token: invalid")

// Config holds the process-wide signing settings.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

func (c *Config) applyDefaults() {
	if c.Issuer == "" {
		c.Issuer = DefaultIssuer
	}
	if c.Audience == "" {
		c.Audience = DefaultAudience
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
}

// claims is the wire shape: {id, email, role} plus the registered envelope.
type claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a single symmetric secret.
type Service struct {
	cfg Config
	now func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for iat/exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New validates cfg and returns a Service.
func New(cfg Config, opts ...Option) (*Service, error) {
	cfg.applyDefaults()
	if cfg.Secret == "" {
		return nil, errors.New("token: secret is required")
	}
	s := &Service{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue returns a signed token for user expiring after the configured TTL.
func (s *Service) Issue(user *domain.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("token: user id is required")
	}

	now := s.now()
	c := claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry.
func (s *Service) Verify(raw string) (*domain.TokenClaims, error) {
	var c claims
	tkn, err := jwt.ParseWithClaims(raw, &c, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !tkn.Valid {
		return nil, ErrInvalid
	}
	if c.UserID == "" || c.Subject != c.UserID || !domain.Role(c.Role).Valid() {
		return nil, fmt.Errorf("%w: incomplete identity claims", ErrInvalid)
	}
	return toDomain(&c), nil
}

// Decode parses raw without verifying anything. It exists for diagnostics such
// as logging who a rejected token claimed to be.
func (s *Service) Decode(raw string) (*domain.TokenClaims, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return nil, fmt.Errorf("token: decode: %w", err)
	}
	return toDomain(&c), nil
}

func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return []byte(s.cfg.Secret), nil
}

// Reason buckets a verification error for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "signature"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "claims"
	default:
		return "invalid"
	}
}

func toDomain(c *claims) *domain.TokenClaims {
	out := &domain.TokenClaims{
		UserID:   c.UserID,
		Email:    c.Email,
		Role:     domain.Role(c.Role),
		Issuer:   c.Issuer,
		Audience: []string(c.Audience),
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
