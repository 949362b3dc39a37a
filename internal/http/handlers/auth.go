package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/auth"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/geocoder89/blogapi/internal/mail"
	"github.com/geocoder89/blogapi/internal/security"
	"github.com/gin-gonic/gin"
)

// UsersStore is what the account handlers need from the users collection.
type UsersStore interface {
	Collection[user.User, user.NewUser, user.Patch]
	SetPassword(ctx context.Context, id, hash string, changedAt *time.Time) (user.User, error)
	SetResetToken(ctx context.Context, id, hash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time, changedAt *time.Time) (user.User, error)
}

type MailObserver interface {
	ObserveMail(kind string, err error)
}

type noopMailObserver struct{}

func (noopMailObserver) ObserveMail(string, error) {}

type AuthConfig struct {
	ResetTokenTTL time.Duration
	// PublicBaseURL prefixes reset links. Empty means scheme://host of
	// the incoming request.
	PublicBaseURL string
}

type AuthHandler struct {
	users    UsersStore
	sessions *Sessions
	mailer   mail.Mailer
	mailObs  MailObserver
	cfg      AuthConfig
	log      *slog.Logger
	now      func() time.Time
	hashCost int
}

func NewAuthHandler(users UsersStore, sessions *Sessions, mailer mail.Mailer, cfg AuthConfig, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		mailer:   mailer,
		mailObs:  noopMailObserver{},
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		hashCost: security.Cost,
	}
}

func (h *AuthHandler) WithClock(now func() time.Time) *AuthHandler {
	h.now = now
	return h
}

func (h *AuthHandler) WithHashCost(cost int) *AuthHandler {
	h.hashCost = cost
	return h
}

func (h *AuthHandler) WithMailObserver(obs MailObserver) *AuthHandler {
	h.mailObs = obs
	return h
}

// changedAt is backdated one second so a token issued in the same
// request is not rejected by the issued-at comparison.
func (h *AuthHandler) changedAt() *time.Time {
	t := h.now().UTC().Add(-time.Second)
	return &t
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPasswordCost(req.Password, h.hashCost)
	if err != nil {
		fail(ctx, apperr.Internal("Could not create user", err))
		return
	}

	// role is never taken from the request
	u, err := h.users.Insert(ctx.Request.Context(), user.NewUser{
		Name:         req.Name,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleUser,
	})
	if err != nil {
		fail(ctx, err)
		return
	}

	h.sessions.send(ctx, http.StatusCreated, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		fail(ctx, apperr.BadRequest("Please provide username and password"))
		return
	}

	u, err := h.users.FindOne(ctx.Request.Context(), "username", strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		fail(ctx, err)
		return
	}

	if err != nil || security.CheckPassword(u.PasswordHash, req.Password) != nil {
		fail(ctx, apperr.Unauthenticated("Incorrect username or password"))
		return
	}

	h.sessions.send(ctx, http.StatusOK, u)
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.sessions.clear(ctx)
	ctx.JSON(http.StatusOK, gin.H{"status": statusSuccess})
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req user.ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	c := ctx.Request.Context()

	u, err := h.users.FindOne(c, "email", req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			fail(ctx, apperr.NotFound("There is no user with that email address."))
			return
		}
		fail(ctx, err)
		return
	}

	token, err := auth.NewResetToken(h.now().UTC(), h.cfg.ResetTokenTTL)
	if err != nil {
		fail(ctx, apperr.Internal("Could not create reset token", err))
		return
	}

	if err := h.users.SetResetToken(c, u.ID, token.Hash, token.ExpiresAt); err != nil {
		fail(ctx, err)
		return
	}

	resetURL := h.baseURL(ctx) + "/api/v1/users/reset-password/" + token.Raw

	err = h.mailer.Send(c, mail.PasswordReset(u.Email, u.Name, resetURL))
	h.mailObs.ObserveMail("password_reset", err)

	if err != nil {
		// a token that was never delivered must not stay usable
		if clearErr := h.users.ClearResetToken(c, u.ID); clearErr != nil {
			h.log.ErrorContext(c, "reset_token_rollback_failed", "user_id", u.ID, "err", clearErr)
		}
		fail(ctx, apperr.Internal("There was an error sending the email. Try again later.", err))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":  statusSuccess,
		"message": "Token sent to email.",
	})
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req user.ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	c := ctx.Request.Context()

	hash, err := security.HashPasswordCost(req.Password, h.hashCost)
	if err != nil {
		fail(ctx, apperr.Internal("Could not reset password", err))
		return
	}

	u, err := h.users.ResetPassword(c, auth.HashResetToken(ctx.Param("token")), hash, h.now().UTC(), h.changedAt())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			fail(ctx, apperr.BadRequest("Token is invalid or has expired."))
			return
		}
		fail(ctx, err)
		return
	}

	h.sessions.send(ctx, http.StatusOK, u)
}

func (h *AuthHandler) UpdateMyPassword(ctx *gin.Context) {
	var req user.UpdatePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	c := ctx.Request.Context()

	me, ok := currentUser(ctx)
	if !ok {
		return
	}

	if security.CheckPassword(me.PasswordHash, req.PasswordCurrent) != nil {
		fail(ctx, apperr.Unauthenticated("Your current password is wrong."))
		return
	}

	hash, err := security.HashPasswordCost(req.Password, h.hashCost)
	if err != nil {
		fail(ctx, apperr.Internal("Could not update password", err))
		return
	}

	u, err := h.users.SetPassword(c, me.ID, hash, h.changedAt())
	if err != nil {
		fail(ctx, err)
		return
	}

	h.sessions.send(ctx, http.StatusOK, u)
}

func (h *AuthHandler) baseURL(ctx *gin.Context) string {
	if h.cfg.PublicBaseURL != "" {
		return strings.TrimRight(h.cfg.PublicBaseURL, "/")
	}

	scheme := "http"
	if ctx.Request.TLS != nil || ctx.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + ctx.Request.Host
}
