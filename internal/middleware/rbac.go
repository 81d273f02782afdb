package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-sim/internal/models"
	appErrors "github.com/noah-isme/campus-sim/pkg/errors"
	"github.com/noah-isme/campus-sim/pkg/response"
)

// RequireRoles rejects callers whose token role is not listed. Must run after JWT.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
