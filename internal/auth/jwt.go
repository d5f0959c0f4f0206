// Package auth verifies the HS256 bearer tokens issued by the frontend
// session layer.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
)

// Claims are the verified token claims. UserID rides in the subject.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller extracted from a token.
type Identity struct {
	UserID snowflake.ID
	Email  string
}

// Verifier validates bearer tokens against the shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth jwt secret is required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(claims.Subject))
	if err != nil {
		return nil, ErrInvalidToken
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: userID, Email: email}, nil
}

// FromAuthorizationHeader strips the Bearer prefix and verifies the rest.
func (v *Verifier) FromAuthorizationHeader(header string) (*Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ErrInvalidToken
	}
	return v.Verify(parts[1])
}

// Sign issues a token for an identity. Used by tests and local tooling;
// production tokens come from the frontend session layer.
func (v *Verifier) Sign(identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
