// Package password implements the credential hasher: salted, deliberately
// slow one-way hashing with constant-time verification.
//
// Two algorithms are available. bcrypt is the default; argon2id can be
// selected through configuration. Hashes are self-describing, so Verify works
// for whichever algorithm produced the stored value.
package password

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Algorithm names a supported hashing scheme.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// Config selects and tunes the hasher.
type Config struct {
	Algorithm  Algorithm
	BcryptCost int
}

// Hasher dispatches verification to the scheme encoded in the stored hash and
// hashes new passwords with the configured scheme.
type Hasher struct {
	primary scheme
	bcrypt  *Bcrypt
	argon2  *Argon2id
}

type scheme interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// New builds a Hasher from configuration.
func New(cfg Config) (*Hasher, error) {
	h := &Hasher{
		bcrypt: NewBcrypt(cfg.BcryptCost),
		argon2: NewArgon2id(),
	}
	switch cfg.Algorithm {
	case "", AlgorithmBcrypt:
		h.primary = h.bcrypt
	case AlgorithmArgon2id:
		h.primary = h.argon2
	default:
		return nil, fmt.Errorf("password: unsupported algorithm %q", cfg.Algorithm)
	}
	return h, nil
}

// Hash returns a new salted hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	return h.primary.Hash(plain)
}

// Verify reports whether plain matches hash.
func (h *Hasher) Verify(plain, hash string) bool {
	if strings.HasPrefix(hash, argon2Prefix) {
		return h.argon2.Verify(plain, hash)
	}
	return h.bcrypt.Verify(plain, hash)
}

// Bcrypt hashes with bcrypt. The salt is generated per call and embedded in
// the output.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a bcrypt scheme. Costs outside bcrypt's range fall back to
// 12.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = 12
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		return "", fmt.Errorf("password: bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify uses bcrypt's own constant-time comparison. Any error, including a
// malformed hash, is a mismatch.
func (b *Bcrypt) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
