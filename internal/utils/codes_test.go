package utils

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[1-9][0-9]{5}$`)

func TestNewVerificationCode_Range(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := NewVerificationCode()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestNewVerificationCode_Bounds(t *testing.T) {
	// all-zero randomness maps to the lowest code
	code, err := newVerificationCode(bytes.NewReader(make([]byte, 64)))
	require.NoError(t, err)
	assert.Equal(t, "100000", code)
}

func TestNewVerificationCode_ReaderError(t *testing.T) {
	_, err := newVerificationCode(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestNewResetToken(t *testing.T) {
	a, err := NewResetToken(32)
	require.NoError(t, err)
	b, err := NewResetToken(32)
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
