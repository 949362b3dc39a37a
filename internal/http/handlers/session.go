package handlers

import (
	"net/http"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/auth"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/geocoder89/blogapi/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Sessions issues session tokens and mirrors them into the jwt cookie.
type Sessions struct {
	tokens    *auth.Manager
	cookieTTL time.Duration
	secure    bool
}

func NewSessions(tokens *auth.Manager, cookieTTL time.Duration, secure bool) *Sessions {
	return &Sessions{tokens: tokens, cookieTTL: cookieTTL, secure: secure}
}

func identityOf(u user.User) auth.Identity {
	return auth.Identity{
		ID:       u.ID,
		Name:     u.Name,
		Role:     u.Role,
		Email:    u.Email,
		Avatar:   u.Avatar,
		Username: u.Username,
	}
}

// send responds with a fresh token for u.
func (s *Sessions) send(ctx *gin.Context, status int, u user.User) {
	token, err := s.tokens.Issue(identityOf(u))
	if err != nil {
		fail(ctx, apperr.Internal("Could not issue token", err))
		return
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.CookieName, token, int(s.cookieTTL.Seconds()), "/", "", s.secure, true)

	ctx.JSON(status, gin.H{
		"status": statusSuccess,
		"token":  token,
		"data":   gin.H{"user": u},
	})
}

func (s *Sessions) clear(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.CookieName, "", -1, "/", "", s.secure, true)
}
