package bank

import (
	"unicode"

	"github.com/shopspring/decimal"
)

// validName accepts letters, spaces and hyphens, with at least one letter.
func validName(name string) bool {
	letters := 0
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsSpace(r), r == '-':
		default:
			return false
		}
	}
	return letters > 0
}

func validAccountNumber(number string) bool {
	if number == "" {
		return false
	}
	for _, r := range number {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// hasCents reports whether d fits in two decimal places.
func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
