package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fintrack/internal/models"
)

// RequireRoles aborts with 403 unless the authenticated user holds one
// of the given roles. Must run after AuthMiddleware.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextRole)
		if !exists {
			abortUnauthorized(c, "Authentication required")
			return
		}

		role, ok := value.(models.Role)
		if ok {
			for _, allowed := range roles {
				if role == allowed {
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": gin.H{"code": "FORBIDDEN", "message": "Access denied"},
		})
	}
}
