package middlewares

import (
	"slices"

	"github.com/geocoder89/blogapi/internal/actorctx"
	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/gin-gonic/gin"
)

// Authorize must run after Authenticate.
func (m *AuthMiddleware) Authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := actorctx.UserFrom(c.Request.Context())
		if !ok {
			abortWith(c, apperr.Unauthenticated("You are not logged in! Please log in to get access."))
			return
		}

		if !slices.Contains(roles, u.Role) {
			abortWith(c, apperr.Forbidden("You do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}
