package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	otpAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// OTPLength is the size of codes embedded in verification tokens.
	OTPLength = 8
)

// GenerateCode returns an n-character uppercase alphanumeric code drawn from crypto/rand.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		n = OTPLength
	}
	max := big.NewInt(int64(len(otpAlphabet)))
	out := make([]byte, n)
	for i := range out {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("otp: reading random source: %w", err)
		}
		out[i] = otpAlphabet[v.Int64()]
	}
	return string(out), nil
}
