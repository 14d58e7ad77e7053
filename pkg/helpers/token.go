package helpers

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec signs and verifies bearer tokens whose payload is just the user
// id. Tokens carry no expiry: rotating the secret invalidates everything
// issued before.
type TokenCodec struct {
	secret []byte
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// Issue signs a token whose subject is the given user id.
func (c *TokenCodec) Issue(userID string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID})
	return t.SignedString(c.secret)
}

// Decode verifies the token signature and returns the embedded user id.
// Any failure (empty, malformed, bad signature) yields ("", false); callers
// treat that as "no identity" rather than an error.
func (c *TokenCodec) Decode(tokenStr string) (string, bool) {
	if tokenStr == "" {
		return "", false
	}
	claims := &jwt.RegisteredClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
