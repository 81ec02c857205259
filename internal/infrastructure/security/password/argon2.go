package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

// Argon2id hashes with argon2id and encodes the result as
// $argon2id$v=19$m=MEMORY,t=TIME,p=THREADS$SALT$KEY.
type Argon2id struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen int
}

// Argon2Option tunes the argon2id scheme.
type Argon2Option func(*Argon2id)

// WithArgon2Time sets the number of passes.
func WithArgon2Time(t uint32) Argon2Option {
	return func(a *Argon2id) { a.time = t }
}

// WithArgon2Memory sets memory in KiB.
func WithArgon2Memory(m uint32) Argon2Option {
	return func(a *Argon2id) { a.memory = m }
}

// WithArgon2Threads sets parallelism.
func WithArgon2Threads(p uint8) Argon2Option {
	return func(a *Argon2id) { a.threads = p }
}

// NewArgon2id returns an argon2id scheme with time=1, memory=64MiB, threads=4.
func NewArgon2id(opts ...Argon2Option) *Argon2id {
	a := &Argon2id{
		time:    1,
		memory:  64 * 1024,
		threads: 4,
		keyLen:  32,
		saltLen: 16,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Argon2id) Hash(plain string) (string, error) {
	salt := make([]byte, a.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plain), salt, a.time, a.memory, a.threads, a.keyLen)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix,
		argon2.Version,
		a.memory, a.time, a.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters and salt stored in encoded and
// compares in constant time.
func (a *Argon2id) Verify(plain, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	if memory == 0 || time == 0 || threads == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey([]byte(plain), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
