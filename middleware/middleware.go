package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/NotJalaAl00/Flint/internal/auth"

	"github.com/gin-gonic/gin"
)

type Mid struct {
	keys *auth.Keys
}

func NewMid(keys *auth.Keys) (*Mid, error) {
	if keys == nil {
		return nil, errors.New("auth keys are nil")
	}
	return &Mid{keys: keys}, nil
}

// Authentication validates the bearer token and stores the claims in the
// request context for handlers to pick up via auth.ClaimsKey.
func (m *Mid) Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.keys.VerifyToken(c.Request.Header.Get("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		if claims.Scope != "" {
			// Scoped tokens (password reset) are not session tokens.
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ResetAuthentication admits only tokens carrying the password-reset scope.
func (m *Mid) ResetAuthentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.keys.VerifyToken(c.Request.Header.Get("Authorization"))
		if err != nil || claims.Scope != auth.ScopePasswordReset {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
