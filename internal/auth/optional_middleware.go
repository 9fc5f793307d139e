package auth

import (
	"github.com/gin-gonic/gin"
)

// OptionalAuthMiddleware inspects for a token and stores its claims if present and valid,
// but does not fail if the token is missing or invalid.
func OptionalAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			if claims, err := verifier.Verify(c.Request.Context(), raw); err == nil {
				c.Set(claimsKey, claims)
			}
		}

		c.Next()
	}
}
