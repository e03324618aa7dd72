package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuth guards the operator endpoints with a static bearer token. An
// empty configured token disables the admin surface entirely.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Admin API is disabled",
			})
			return
		}

		header := c.GetHeader("Authorization")
		provided := strings.TrimPrefix(header, "Bearer ")
		if header == provided || provided != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or missing admin token",
			})
			return
		}

		c.Next()
	}
}
