package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mgm-billing/internal/utils"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// JWTAuth requires a bearer token. Event streams may pass it as ?token= since browsers cannot set headers there.
func JWTAuth(jwt *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				abortUnauthorized(c, "Invalid authorization header")
				return
			}
			token = strings.TrimSpace(parts[1])
		} else {
			token = c.Query("token")
		}

		if token == "" {
			abortUnauthorized(c, "Authorization token required")
			return
		}

		claims, err := jwt.ParseToken(token)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserId)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
	})
}
