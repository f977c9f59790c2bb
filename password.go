package authcore

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher wraps bcrypt with a fixed work factor.  Construct one at process
// start and inject it wherever passwords are hashed or checked; the cost is
// part of process configuration, not a package-level global.
type Hasher struct {
	// Cost is the bcrypt work factor.  Zero means bcrypt.DefaultCost.
	Cost int
}

func (h *Hasher) cost() int {
	if h.Cost <= 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

// Hash returns the bcrypt hash of plaintext.  The per-call salt is embedded
// in the output, so no separate salt storage is needed.
func (h *Hasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether plaintext matches the stored hash.  The comparison
// runs inside bcrypt and does not short-circuit on the first mismatched byte.
func (h *Hasher) Verify(plaintext, hashedSecret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(plaintext)) == nil
}
