package secret

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/openroost/gatehouse/internal/domain"
)

// Compile-time check: Codec implements domain.SecretCodec.
var _ domain.SecretCodec = (*Codec)(nil)

// DefaultTTL is how long an approved reservation's password stays redeemable.
const DefaultTTL = 24 * time.Hour

// argon2id parameters. Moderate settings: reservation passwords are
// high-entropy UUIDs, not human-chosen.
const (
	saltLen      = 16
	keyLen       = 32
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// Codec derives salted argon2id hashes for one-time reservation passwords.
// The plaintext is shown once at approval; only salt and hash are persisted.
type Codec struct {
	ttl time.Duration
}

// New creates a codec whose generated secrets expire after ttl.
// A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{ttl: ttl}
}

// Generate produces a random plaintext password with its salt, derived hash
// and expiry timestamp.
func (c *Codec) Generate() (string, []byte, []byte, time.Time, error) {
	plaintext := uuid.NewString()

	salt, hash, err := c.Hash(plaintext)
	if err != nil {
		return "", nil, nil, time.Time{}, err
	}

	expiry := time.Now().UTC().Add(c.ttl)
	return plaintext, salt, hash, expiry, nil
}

// Hash derives a fresh salted hash for the given plaintext.
func (c *Codec) Hash(plaintext string) ([]byte, []byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, keyLen)
	return salt, hash, nil
}

// Verify recomputes the hash for the presented plaintext and compares in
// constant time. Empty or malformed inputs are not a match; Verify never
// fails with an error.
func (c *Codec) Verify(plaintext string, salt, hash []byte) bool {
	if plaintext == "" || len(salt) == 0 || len(hash) == 0 {
		return false
	}

	derived := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, keyLen)
	return subtle.ConstantTimeCompare(derived, hash) == 1
}
