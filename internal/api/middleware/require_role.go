package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/audition/internal/models"
	"github.com/yoockh/audition/internal/utils"
)

// RequireRole lets the request through only when the role set by JWTAuth is
// one of allowed.
func RequireRole(allowed ...models.UserRole) gin.HandlerFunc {
	allow := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		if a = models.ParseRole(string(a)); a != "" {
			allow[a] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		v, _ := c.Get("role")
		s, _ := v.(string)
		role := models.ParseRole(s)
		if role == "" {
			abort(c, http.StatusForbidden, utils.CodeForbidden, "role missing from token")
			return
		}
		if _, ok := allow[role]; !ok {
			abort(c, http.StatusForbidden, utils.CodeForbidden, "role "+string(role)+" may not access this resource")
			return
		}
		c.Next()
	}
}
