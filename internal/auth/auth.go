// Package auth issues and verifies the HS256 bearer tokens used by every
// authenticated endpoint, and the short-lived reset-scoped tokens handed out
// after an OTP-verified password reset request.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

// ClaimsKey is the request-context key under which middleware stores Claims.
const ClaimsKey ctxKey = 1

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// ScopePasswordReset marks a token that permits exactly one password
	// update and nothing else.
	ScopePasswordReset = "password-reset"
)

var (
	ErrMissingKey   = errors.New("auth: signing key is empty")
	ErrInvalidToken = errors.New("auth: invalid token")
)

type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
	Scope string `json:"scope,omitempty"`
}

// Keys holds the shared HMAC signing key, injected once at startup instead
// of read from the environment on every request.
type Keys struct {
	signingKey []byte
}

func NewKeys(signingKey string) (*Keys, error) {
	if signingKey == "" {
		return nil, ErrMissingKey
	}
	return &Keys{signingKey: []byte(signingKey)}, nil
}

// GenerateToken signs a session token valid for 30 days.
func (k *Keys) GenerateToken(userID, email, role string) (string, error) {
	return k.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * 24 * time.Hour)),
		},
		Email: email,
		Role:  role,
	})
}

// GenerateResetToken signs a token scoped to a single password update,
// valid for 15 minutes.
func (k *Keys) GenerateResetToken(userID, email string) (string, error) {
	return k.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
		Email: email,
		Scope: ScopePasswordReset,
	})
}

func (k *Keys) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(k.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses an "Authorization: Bearer <token>" header value and
// returns the embedded claims.
func (k *Keys) VerifyToken(authHeader string) (Claims, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(parts[1], &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return k.signingKey, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
