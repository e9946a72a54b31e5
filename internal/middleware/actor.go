package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDHeader names the acting user. It is trusted as sent.
const UserIDHeader = "X-User-ID"

const userIDKey = "userID"

// ActingUser reads X-User-ID into the context. A malformed value is rejected,
// an absent one leaves the request anonymous.
func ActingUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if raw == "" {
			c.Next()
			return
		}
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "El encabezado " + UserIDHeader + " debe ser un número",
			})
			return
		}
		c.Set(userIDKey, uint(id))
		c.Next()
	}
}

// GetUserID extracts the acting user ID from the Gin context, zero when anonymous
func GetUserID(c *gin.Context) uint {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0
	}
	return userID.(uint)
}
