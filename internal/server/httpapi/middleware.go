package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dsavelev/dialogvault/internal/server/auth"
)

// authUserIDKey stores the token-verified user ID in the gin context.
const authUserIDKey = "auth_user_id"

// RequireToken verifies the Authorization bearer token and stores the
// token's user ID for per-request ownership checks.
func RequireToken(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := auth.GetUserIDFromToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(authUserIDKey, userID)
		c.Next()
	}
}

// callerMayActFor reports whether the request may operate on userID. With
// token auth disarmed there is no caller identity and every request passes.
func callerMayActFor(c *gin.Context, userID int64) bool {
	v, exists := c.Get(authUserIDKey)
	if !exists {
		return true
	}
	tokenUserID, ok := v.(int64)
	return ok && tokenUserID == userID
}
