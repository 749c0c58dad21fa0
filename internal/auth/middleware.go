package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// UserIDHeader carries the caller identity when no bearer token is sent
	UserIDHeader = "X-User-Id"

	userIDKey       = "user_id"
	maxUserIDLength = 128
)

// IdentityMiddleware resolves the caller identity. When JWT is enabled a
// valid bearer token is required and X-User-Id is ignored; otherwise the
// X-User-Id header is trusted as is.
func IdentityMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if Enabled() {
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Authorization header required",
					"code":  "Unauthorized",
				})
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Invalid authorization header format. Expected: Bearer <token>",
					"code":  "Unauthorized",
				})
				return
			}

			claims, err := ValidateToken(parts[1])
			if err != nil {
				log.Debug("Token validation failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Invalid or expired token",
					"code":  "Unauthorized",
				})
				return
			}

			c.Set(userIDKey, claims.Subject)
			c.Next()
			return
		}

		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" || len(userID) > maxUserIDLength {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "X-User-Id header required",
				"code":  "Unauthorized",
			})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// GetUserID retrieves the caller identity from the context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	return id, ok && id != ""
}
