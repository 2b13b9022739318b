// Package password holds the password strength policy and the one-way hash
// used for account credentials.
package password

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is the minimum accepted password length.
const MinLength = 8

// MaxBytes is the longest password bcrypt accepts.
const MaxBytes = 72

// Strength rule violations, in the order they are checked.
var (
	ErrTooShort    = fmt.Errorf("Password must be at least %d characters long.", MinLength) //nolint:revive,staticcheck // user-facing sentence
	ErrTooLong     = fmt.Errorf("Password must be at most %d bytes long.", MaxBytes)        //nolint:revive,staticcheck
	ErrNoUppercase = errors.New("Password must contain at least one uppercase letter.")     //nolint:revive,staticcheck
	ErrNoDigit     = errors.New("Password must contain at least one digit.")                //nolint:revive,staticcheck
)

// ValidateStrength returns the first violated rule, or nil.
func ValidateStrength(pw string) error {
	if len([]rune(pw)) < MinLength {
		return ErrTooShort
	}
	if len(pw) > MaxBytes {
		return ErrTooLong
	}
	var upper, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return ErrNoUppercase
	}
	if !digit {
		return ErrNoDigit
	}
	return nil
}

// Hash returns a salted bcrypt digest of pw at the default cost.
func Hash(pw string) (string, error) {
	return HashCost(pw, bcrypt.DefaultCost)
}

// HashCost is Hash with an explicit bcrypt cost. Costs below bcrypt.MinCost
// are raised to it.
func HashCost(pw string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether pw matches digest.
func Verify(pw, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(pw)) == nil
}
