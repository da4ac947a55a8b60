package goGate

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// linkSigner wraps opaque token ids in HS256 JWTs for destinations that
// verify signatures offline. The store lookup stays authoritative; the
// signature only binds id, resource, and expiry into one value.
type linkSigner struct {
	key []byte
}

func newLinkSigner(key []byte) *linkSigner {
	return &linkSigner{key: cloneBytes(key)}
}

func (s *linkSigner) Sign(tokenID, resource string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        tokenID,
		Audience:  jwt.ClaimStrings{resource},
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Parse verifies the signature and returns the embedded token id. Expiry
// is reported as jwt.ErrTokenExpired so the caller can distinguish an
// expired link from a forged one.
func (s *linkSigner) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims.ID, jwt.ErrTokenExpired
		}
		return "", err
	}
	if !parsed.Valid || claims.ID == "" {
		return "", errors.New("invalid link claims")
	}
	return claims.ID, nil
}
