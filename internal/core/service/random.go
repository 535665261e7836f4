package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	digits       = "0123456789"
	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// generateCode returns n uniformly random decimal digits.
func generateCode(n int) (string, error) {
	return randomString(n, digits)
}

// generateToken returns n characters drawn uniformly from letters and digits.
func generateToken(n int) (string, error) {
	return randomString(n, alphanumeric)
}

func randomString(n int, alphabet string) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
