package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest secret bcrypt will accept.
const maxPasswordBytes = 72

// PasswordHasher hashes and verifies secrets with bcrypt.
type PasswordHasher struct {
	cost int

	once  *sync.Once
	dummy *[]byte
}

// NewPasswordHasher returns a hasher using the given bcrypt cost, falling back to
// bcrypt.DefaultCost when the cost is out of range.
func NewPasswordHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return PasswordHasher{cost: cost, once: &sync.Once{}, dummy: new([]byte)}
}

// Hash returns the salted bcrypt hash of secret.
func (h PasswordHasher) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether candidate matches the stored hash. A mismatch is not an error.
func (h PasswordHasher) Verify(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// burn performs a comparison against a throwaway hash so that lookups for unknown
// identifiers cost the same as a real mismatch.
func (h PasswordHasher) burn(candidate string) {
	if h.once == nil {
		return
	}
	h.once.Do(func() {
		hashed, err := bcrypt.GenerateFromPassword([]byte("vidhub-unknown-principal"), h.cost)
		if err == nil {
			*h.dummy = hashed
		}
	})
	if len(*h.dummy) == 0 {
		return
	}
	_ = bcrypt.CompareHashAndPassword(*h.dummy, []byte(candidate))
}
