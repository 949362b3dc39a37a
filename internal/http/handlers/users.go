package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/blogapi/internal/actorctx"
	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/cache"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// PostsDeleter removes every post a user authored.
type PostsDeleter interface {
	DeleteMany(ctx context.Context, username string) (int64, error)
}

// UsersHandler serves the signed-in user's own account. Admin CRUD over
// users goes through a Factory.
type UsersHandler struct {
	users    UsersStore
	posts    PostsDeleter
	sessions *Sessions
	cache    cache.Store
}

func NewUsersHandler(users UsersStore, posts PostsDeleter, sessions *Sessions, c cache.Store) *UsersHandler {
	if c == nil {
		c = cache.Noop{}
	}
	return &UsersHandler{users: users, posts: posts, sessions: sessions, cache: c}
}

func (h *UsersHandler) GetMe(ctx *gin.Context) {
	me, ok := currentUser(ctx)
	if !ok {
		return
	}

	u, err := h.users.FindByID(ctx.Request.Context(), me.ID)
	if err != nil {
		fail(ctx, err)
		return
	}

	respondDoc(ctx, http.StatusOK, u)
}

func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	var req user.UpdateMeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Password != "" || req.PasswordConfirm != "" {
		fail(ctx, apperr.BadRequest("This route is not for password updates. Please use /api/v1/users/update-my-password."))
		return
	}

	me, ok := currentUser(ctx)
	if !ok {
		return
	}

	u, err := h.users.UpdateByID(ctx.Request.Context(), me.ID, req.Patch())
	if err != nil {
		fail(ctx, err)
		return
	}

	// the token carries the profile, so a fresh one is issued
	h.sessions.send(ctx, http.StatusOK, u)
}

func (h *UsersHandler) DeleteMe(ctx *gin.Context) {
	me, ok := currentUser(ctx)
	if !ok {
		return
	}

	c := ctx.Request.Context()

	if err := h.users.DeleteByID(c, me.ID); err != nil {
		fail(ctx, err)
		return
	}

	if _, err := h.posts.DeleteMany(c, me.Username); err != nil {
		fail(ctx, err)
		return
	}
	h.cache.Bump(c, "posts")

	h.sessions.clear(ctx)
	respondNoContent(ctx)
}

// CreateUser exists so POST /users answers with a pointer to signup.
func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	fail(ctx, apperr.BadRequest("This route is not defined! Please use /api/v1/users/signup instead."))
}

func currentUser(ctx *gin.Context) (user.User, bool) {
	u, ok := actorctx.UserFrom(ctx.Request.Context())
	if !ok {
		fail(ctx, apperr.Unauthenticated("You are not logged in! Please log in to get access."))
		return user.User{}, false
	}
	return u, true
}
