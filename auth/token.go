package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const Issuer = "nostalgia-machine"

var ErrInvalidToken = errors.New("invalid token")

// TokenCodec issues and verifies the bearer tokens carried by callers.
// Tokens hold only the issuer and the username, so issuing is deterministic
// and verifying needs no storage.
type TokenCodec struct {
	secret []byte
}

func NewTokenCodec(secret []byte) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret cannot be empty")
	}
	return &TokenCodec{secret: secret}, nil
}

func (tc *TokenCodec) Issue(username string) (string, error) {
	if username == "" {
		return "", errors.New("cannot issue a token without a username")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  Issuer,
		Subject: username,
	})
	return token.SignedString(tc.secret)
}

func (tc *TokenCodec) Verify(token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
	)
	claims := jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return tc.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
