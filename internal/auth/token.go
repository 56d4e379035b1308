package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// TokenVerifier validates bearer tokens and extracts the wallet identity.
type TokenVerifier interface {
	Verify(tokenString string) (walletID string, err error)
}

// TokenGenerator mints bearer tokens bound to a wallet.
type TokenGenerator interface {
	Generate(walletID string, ttl time.Duration) (string, error)
}

// JWTCodec generates and verifies HS256 signed JWTs whose "sub" claim carries
// the wallet id.
type JWTCodec struct {
	secret []byte
}

// NewJWTCodec creates a codec with the given signing secret.
func NewJWTCodec(secret []byte) *JWTCodec {
	return &JWTCodec{secret: secret}
}

// Verify validates the token and extracts the wallet id from the "sub" claim.
func (c *JWTCodec) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	return sub, nil
}

// Generate creates a new JWT for the given wallet id with expiration.
func (c *JWTCodec) Generate(walletID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": walletID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}
