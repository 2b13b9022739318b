package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateLoanEMI(t *testing.T) {
	tests := []struct {
		principal, rate string
		years           int
		want            string
	}{
		{"100000", "10", 1, "8791.59"},
		{"500000", "8.5", 20, "4339.12"},
		{"250000", "7.25", 30, "1705.44"},
	}
	for _, tt := range tests {
		got, err := CalculateLoanEMI(dec(tt.principal), dec(tt.rate), tt.years)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.StringFixed(2), "P=%s r=%s y=%d", tt.principal, tt.rate, tt.years)
	}
}

func TestCalculateLoanEMIRejectsNonPositive(t *testing.T) {
	tests := []struct {
		principal, rate string
		years           int
	}{
		{"0", "10", 1},
		{"-100", "10", 1},
		{"1000", "0", 1},
		{"1000", "-2", 1},
		{"1000", "10", 0},
		{"1000", "10", -3},
	}
	for _, tt := range tests {
		_, err := CalculateLoanEMI(dec(tt.principal), dec(tt.rate), tt.years)
		assert.ErrorIs(t, err, ErrValidation)
		assert.EqualError(t, err, "Principal, rate, and years must be positive values.")
	}
}

func TestCalculateLoanEMIVanishingRate(t *testing.T) {
	_, err := CalculateLoanEMI(dec("1000"), dec("0.0000000000000001"), 1)
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "Interest rate is too small to calculate an EMI.")
}

func TestEngineEMINeedsNoSession(t *testing.T) {
	f := newFixture(t)
	got, err := f.eng.CalculateLoanEMI(dec("100000"), dec("10"), 1)
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("8791.59")))
}
