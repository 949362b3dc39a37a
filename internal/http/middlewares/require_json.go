package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/gin-gonic/gin"
)

// RequireJSON rejects write requests that carry a body in any other
// content type. Bodiless writes (logout, delete) pass.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength == 0 {
				break
			}
			ct := c.GetHeader("Content-Type")
			// allow "application/json; charset=utf-8"
			if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
				_ = c.Error(apperr.BadRequest("Content-Type must be application/json"))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
