package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Random returns n cryptographically random bytes as a 2n-character hex string.
func Random(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Digits returns a uniformly distributed n-digit numeric code without a leading zero,
// i.e. a value in [10^(n-1), 10^n).
func Digits(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("digits: invalid length %d", n)
	}
	lo := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	hi := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	span := new(big.Int).Sub(hi, lo)
	v, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate digits: %w", err)
	}
	return v.Add(v, lo).String(), nil
}
