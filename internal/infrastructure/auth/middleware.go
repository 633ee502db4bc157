package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const adminClaimsKey = "admin_claims"

// APIKeyMiddleware enforces Authorization: Bearer <key> when keys are
// configured. With no keys every request passes.
func APIKeyMiddleware(keys []string) gin.HandlerFunc {
	if len(keys) == 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		key := BearerToken(c.GetHeader("Authorization"))
		if key == "" {
			abortUnauthorized(c, "missing API key")
			return
		}
		for _, want := range keys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(want)) == 1 {
				c.Next()
				return
			}
		}
		abortUnauthorized(c, "invalid API key")
	}
}

// Middleware requires a valid admin session token.
func (a *AdminAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			abortUnauthorized(c, "missing admin token")
			return
		}
		claims, err := a.Validate(c.Request.Context(), token)
		if err != nil {
			message := "invalid admin token"
			if errors.Is(err, ErrTokenRevoked) {
				message = "admin token has been revoked"
			}
			abortUnauthorized(c, message)
			return
		}
		c.Set(adminClaimsKey, claims)
		c.Next()
	}
}

// AdminFromContext returns the claims stored by Middleware.
func AdminFromContext(c *gin.Context) (*AdminClaims, bool) {
	value, ok := c.Get(adminClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*AdminClaims)
	return claims, ok
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"message": message,
			"type":    "authentication_error",
			"code":    "UNAUTHORIZED",
		},
	})
}
