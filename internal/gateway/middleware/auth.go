package middleware

import (
	"net/http"
	"strings"

	"restro-system/internal/utils"

	"github.com/gin-gonic/gin"
)

// JWTAuth requires a bearer token signed with the configured secret. With
// enabled false every request passes.
func JWTAuth(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authorization header required",
			})
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set("staff_id", claims.StaffID)
		c.Set("staff_name", claims.Name)
		c.Set("staff_role", claims.Role)
		c.Next()
	}
}
