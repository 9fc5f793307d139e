package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequirePermission creates a gin middleware that checks the token grants perm.
// It must be used AFTER AuthMiddleware.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		if !claims.HasPermission(perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permission " + perm + " required"})
			return
		}

		c.Next()
	}
}
