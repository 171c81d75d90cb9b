package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collab-chat-service/internal/auth"
)

// IdentityKey is the gin context key holding the resolved auth.Identity.
const IdentityKey = "identity"

// AuthMiddleware resolves the Authorization header through the token
// validator and rejects anonymous callers.
func AuthMiddleware(validator *auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		identity := validator.Resolve(c.Request.Context(), parts[1])
		if identity.IsAnonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", identity.UserID)
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// TokenFromRequest extracts a bearer token for websocket handshakes, where
// the browser API cannot set custom headers: the token query parameter is
// tried first, then the Authorization header.
func TokenFromRequest(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
