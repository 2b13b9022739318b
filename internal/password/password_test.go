package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStrength(t *testing.T) {
	tests := []struct {
		pw   string
		want error
	}{
		{"Abcdefg1", nil},
		{"Secur3Passw0rd", nil},
		{"Ab1", ErrTooShort},
		{"", ErrTooShort},
		{"abcdefg1", ErrNoUppercase},
		{"Abcdefgh", ErrNoDigit},
		{"ABCDEFGH", ErrNoDigit},
		{"Abcdefg1" + strings.Repeat("x", 64), nil},
		{"Abcdefg1" + strings.Repeat("x", 65), ErrTooLong},
		// Multi-byte runes count by their encoded size.
		{"Abcdefg1" + strings.Repeat("é", 33), ErrTooLong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateStrength(tt.pw), "ValidateStrength(%q)", tt.pw)
	}
}

func TestValidateStrength_FirstRuleWins(t *testing.T) {
	// Short, no uppercase and no digit: length is reported.
	assert.Equal(t, ErrTooShort, ValidateStrength("abc"))
}

func TestValidateStrength_Messages(t *testing.T) {
	assert.Equal(t, "Password must be at least 8 characters long.", ErrTooShort.Error())
	assert.Equal(t, "Password must contain at least one uppercase letter.", ErrNoUppercase.Error())
	assert.Equal(t, "Password must contain at least one digit.", ErrNoDigit.Error())
	assert.Equal(t, "Password must be at most 72 bytes long.", ErrTooLong.Error())
}

func TestHashVerify(t *testing.T) {
	digest, err := Hash("Abcdefg1")
	require.NoError(t, err)
	assert.NotEqual(t, "Abcdefg1", digest)

	assert.True(t, Verify("Abcdefg1", digest))
	assert.False(t, Verify("Abcdefg2", digest))
	assert.False(t, Verify("Abcdefg1", "not-a-hash"))
}

func TestHashSalted(t *testing.T) {
	a, err := Hash("Abcdefg1")
	require.NoError(t, err)
	b, err := Hash("Abcdefg1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "same password should hash differently")
}

func TestHashCost_ClampsLowCost(t *testing.T) {
	digest, err := HashCost("Abcdefg1", 0)
	require.NoError(t, err)
	assert.True(t, Verify("Abcdefg1", digest))
}

func TestHash_LongestAcceptedPassword(t *testing.T) {
	pw := "Abcdefg1" + strings.Repeat("x", MaxBytes-8)
	require.NoError(t, ValidateStrength(pw))
	digest, err := HashCost(pw, 0)
	require.NoError(t, err)
	assert.True(t, Verify(pw, digest))
}
