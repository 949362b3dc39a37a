package middlewares

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/blogapi/internal/actorctx"
	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/auth"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep these small interfaces so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (user.User, error)
}

const CookieName = "jwt"

type AuthMiddleware struct {
	tokens TokenVerifier
	users  UserFinder
}

func NewAuthMiddleware(tokens TokenVerifier, users UserFinder) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Authenticate resolves the caller from a bearer token (Authorization
// header first, then the jwt cookie) and attaches the stored user to the
// request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			abortWith(c, apperr.Unauthenticated("You are not logged in! Please log in to get access."))
			return
		}

		claims, err := m.tokens.Verify(raw)
		if err != nil {
			abortWith(c, apperr.Wrap(apperr.KindUnauthenticated, "Invalid or expired token. Please log in again.", err))
			return
		}

		u, err := m.users.FindByID(c.Request.Context(), claims.Identity.ID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidID) {
				abortWith(c, apperr.Unauthenticated("The user belonging to this token does no longer exist."))
				return
			}
			abortWith(c, err)
			return
		}

		if u.ChangedPasswordAfter(claims.IssuedAt.Time) {
			abortWith(c, apperr.Unauthenticated("User recently changed password! Please log in again."))
			return
		}

		c.Request = c.Request.WithContext(actorctx.WithUser(c.Request.Context(), u))

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); raw != "" {
			return raw
		}
	}

	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" && cookie != "loggedout" {
		return cookie
	}
	return ""
}

func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
