package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is bcrypt's input limit. Longer inputs are rejected
// rather than silently truncated.
const MaxPasswordBytes = 72

var (
	ErrPasswordEmpty   = errors.New("password is empty")
	ErrPasswordTooLong = fmt.Errorf("password is longer than %d bytes", MaxPasswordBytes)
)

// Hasher hashes and verifies passwords with bcrypt. The salt is generated
// per call and embedded in the encoded hash.
type Hasher struct {
	cost  int
	dummy string
}

// NewHasher returns a Hasher using the given bcrypt cost. Costs outside
// bcrypt's accepted range fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &Hasher{cost: cost}
	// valid input, cannot fail
	dummy, _ := bcrypt.GenerateFromPassword([]byte("paralympics-timing-dummy"), cost)
	h.dummy = string(dummy)
	return h
}

// Hash returns the bcrypt encoding of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrPasswordEmpty
	}
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A malformed hash is a
// mismatch. bcrypt ignores input past MaxPasswordBytes, so longer
// plaintexts never match; they are still compared against the dummy hash
// to keep the cost of a rejection constant.
func (h *Hasher) Verify(plaintext, hash string) bool {
	if len(plaintext) > MaxPasswordBytes {
		_ = bcrypt.CompareHashAndPassword([]byte(h.dummy), []byte(plaintext))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Dummy returns a valid hash that matches no user password. Verifying
// against it costs the same as a real check.
func (h *Hasher) Dummy() string {
	return h.dummy
}
