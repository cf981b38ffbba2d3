package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/streamcart/backend/pkg/response"
)

// RequireRole returns a middleware that rejects requests whose authenticated
// role is not in the given set. Must run after JWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		if !allowed[role] {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
