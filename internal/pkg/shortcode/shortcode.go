package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// Length of a human-enterable code.
	Length = 6

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generate returns a random 6-character code of uppercase letters and digits.
// Uniqueness is not guaranteed here; the batch service retries on collision.
func Generate() (string, error) {
	buf := make([]byte, Length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
