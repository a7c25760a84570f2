package auth

import (
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// MaxPasswordBytes is the longest password bcrypt reads in full.
const MaxPasswordBytes = 72

// Passwords hashes account passwords at one bcrypt cost.
type Passwords struct {
	cost int
}

// NewPasswords clamps cost into bcrypt's range. Zero or less selects
// bcrypt.DefaultCost.
func NewPasswords(cost int) Passwords {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return Passwords{cost: cost}
}

// Cost is the bcrypt cost new hashes are made with.
func (p Passwords) Cost() int {
	return p.cost
}

// Hash rejects empty and over-long passwords with VALIDATION_FAILED.
func (p Passwords) Hash(plain string) (string, error) {
	if plain == "" {
		return "", apperrors.NewValidationError("password is required", nil)
	}
	if len(plain) > MaxPasswordBytes {
		return "", apperrors.NewValidationError("password too long", map[string]any{"max_bytes": MaxPasswordBytes})
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), p.cost)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hashed. A malformed hash never matches.
func (p Passwords) Verify(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
