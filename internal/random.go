package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const linkTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewLinkToken returns a random identifier of the given length drawn from
// [A-Za-z0-9]. Unguessability comes from crypto/rand only.
func NewLinkToken(length int) (string, error) {
	if length < 6 {
		return "", errors.New("invalid link token length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(linkTokenAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(linkTokenAlphabet[n.Int64()])
	}

	return b.String(), nil
}
