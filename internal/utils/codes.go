package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
)

const (
	codeMin  = 100000
	codeSpan = 900000 // codes are in [100000, 999999]
)

// NewVerificationCode returns a uniformly random 6-digit code with no leading
// zero.
func NewVerificationCode() (string, error) {
	return newVerificationCode(rand.Reader)
}

func newVerificationCode(src io.Reader) (string, error) {
	n, err := rand.Int(src, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// NewResetToken returns a random URL-safe token of n bytes of entropy.
func NewResetToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the lookup key stored for a reset token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
