package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/SachinGupta0206/saas-contracts-dashboard/model"
	"github.com/SachinGupta0206/saas-contracts-dashboard/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Authenticator resolves a bearer token to the identity it was issued for
type Authenticator interface {
	Authenticate(token string) (model.Identity, bool)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// SessionAuth rejects requests that do not carry the active session token
func SessionAuth(sessions Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		token, ok := BearerToken(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		identity, ok := sessions.Authenticate(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		c.Set("username", identity.Username)
		c.Set("identity", identity)

		ctx := context.WithValue(c.Request.Context(), logger.UsernameKey, identity.Username)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetUsername gets the username from context
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get("username"); exists {
		return username.(string)
	}
	return ""
}

// GetIdentity gets the authenticated identity from context
func GetIdentity(c *gin.Context) (model.Identity, bool) {
	v, exists := c.Get("identity")
	if !exists {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}
