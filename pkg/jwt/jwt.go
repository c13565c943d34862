package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrNoUsername   = errors.New("token has no username claim")
)

// Claims represents JWT claims issued by the platform's auth service.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string   `json:"user_id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Type     string   `json:"type"` // "access" or "refresh"
}

// ParseUnverified decodes the claims of a token without checking its signature.
// The viewer holds no signing key; the platform validates the token on every
// request it receives, so the client only reads the profile out of it.
func ParseUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UsernameFromToken returns the username claim of an unexpired access token.
func UsernameFromToken(tokenString string, now time.Time) (string, error) {
	claims, err := ParseUnverified(tokenString)
	if err != nil {
		return "", err
	}

	if claims.Type == "refresh" {
		return "", ErrInvalidToken
	}
	if claims.ExpiresAt != nil && now.After(claims.ExpiresAt.Time) {
		return "", ErrExpiredToken
	}
	if claims.Username == "" {
		return "", ErrNoUsername
	}

	return claims.Username, nil
}
