package ports

import "github.com/deathkiller/api/internal/core/domain"

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify reports whether plain matches hash. A malformed hash is a
	// mismatch, not an error.
	Verify(plain, hash string) bool
}

// TokenService mints and checks identity tokens.
type TokenService interface {
	Issue(user *domain.User) (string, error)
	Verify(token string) (*domain.TokenClaims, error)
	// Decode reads claims without checking the signature. Diagnostics only;
	// never base an access decision on its result.
	Decode(token string) (*domain.TokenClaims, error)
}
