package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/blogapi/internal/actorctx"
	"github.com/geocoder89/blogapi/internal/auth"
	"github.com/geocoder89/blogapi/internal/cache"
	"github.com/geocoder89/blogapi/internal/config"
	"github.com/geocoder89/blogapi/internal/domain/category"
	"github.com/geocoder89/blogapi/internal/domain/post"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/geocoder89/blogapi/internal/http/handlers"
	"github.com/geocoder89/blogapi/internal/http/middlewares"
	"github.com/geocoder89/blogapi/internal/mail"
	"github.com/geocoder89/blogapi/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type PostsStore interface {
	handlers.Collection[post.Post, post.CreateRequest, post.UpdateRequest]
	handlers.PostsDeleter
}

type CategoriesStore = handlers.Collection[category.Category, category.CreateRequest, category.UpdateRequest]

// Deps is everything the router wires together. Prom, Metrics, Ping, Now
// and HashCost are optional.
type Deps struct {
	Config config.Config
	Log    *slog.Logger

	Users      handlers.UsersStore
	Posts      PostsStore
	Categories CategoriesStore

	Tokens *auth.Manager
	Mailer mail.Mailer
	Cache  cache.Store

	Prom    *observability.Prom
	Metrics http.Handler
	Ping    func(ctx context.Context) error

	Now      func() time.Time
	HashCost int
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Now != nil {
		d.Tokens = d.Tokens.WithClock(d.Now)
	}

	r := gin.New()

	// ErrorResponder wraps Recovery so recovered panics are rendered too
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("blog-api"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.ErrorResponder(d.Log, d.Config.Env))
	r.Use(middlewares.Recovery())
	r.Use(middlewares.MaxBodyBytes(d.Config.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	r.NoRoute(middlewares.NotFound())

	health := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	var (
		cacheObs handlers.CacheObserver
		mailObs  handlers.MailObserver
	)
	if d.Prom != nil {
		cacheObs = d.Prom
		mailObs = d.Prom
	}

	sessions := handlers.NewSessions(d.Tokens, d.Config.JWTCookieTTL, d.Config.IsProd())
	guard := middlewares.NewAuthMiddleware(d.Tokens, d.Users)
	protect := guard.Authenticate()
	adminOnly := guard.Authorize(user.RoleAdmin)

	authH := handlers.NewAuthHandler(d.Users, sessions, d.Mailer, handlers.AuthConfig{
		ResetTokenTTL: d.Config.ResetTokenTTL,
		PublicBaseURL: d.Config.PublicBaseURL,
	}, d.Log)
	if d.Now != nil {
		authH.WithClock(d.Now)
	}
	if d.HashCost > 0 {
		authH.WithHashCost(d.HashCost)
	}
	if mailObs != nil {
		authH.WithMailObserver(mailObs)
	}

	usersH := handlers.NewUsersHandler(d.Users, d.Posts, sessions, d.Cache)
	usersAdmin := handlers.NewFactory[user.User, user.NewUser, user.Patch]("users", "account", d.Users)

	postsH := handlers.NewFactory[post.Post, post.CreateRequest, post.UpdateRequest]("posts", "posts", d.Posts).
		WithCache(d.Cache, cacheObs).
		WithOwner(func(p post.Post) string { return p.Username }).
		BeforeCreate(func(ctx *gin.Context, in *post.CreateRequest) error {
			// posts are always authored by the caller
			u, _ := actorctx.UserFrom(ctx.Request.Context())
			in.Username = u.Username
			return nil
		})

	categoriesH := handlers.NewFactory[category.Category, category.CreateRequest, category.UpdateRequest]("categories", "categories", d.Categories).
		WithCache(d.Cache, cacheObs)

	v1 := r.Group("/api/v1")

	users := v1.Group("/users")
	{
		users.POST("/signup", authH.SignUp)
		users.POST("/login", authH.Login)
		users.POST("/logout", authH.Logout)
		users.POST("/forgot-password", authH.ForgotPassword)
		users.POST("/reset-password/:token", authH.ResetPassword)

		me := users.Group("", protect)
		me.PATCH("/update-my-password", authH.UpdateMyPassword)
		me.GET("/me", usersH.GetMe)
		me.PATCH("/update-me", usersH.UpdateMe)
		me.DELETE("/delete-me", usersH.DeleteMe)

		admin := users.Group("", protect, adminOnly)
		admin.GET("", usersAdmin.GetAll)
		admin.POST("", usersH.CreateUser)
		admin.GET("/:id", usersAdmin.GetOneByID)
		admin.PATCH("/:id", usersAdmin.UpdateOne)
		admin.DELETE("/:id", usersAdmin.DeleteOne)
	}

	posts := v1.Group("/posts")
	{
		posts.GET("", postsH.GetAll)
		posts.POST("", protect, postsH.CreateOne)
		posts.GET("/details/:slug", postsH.GetOneBySlug)
		posts.GET("/:id", postsH.GetOneByID)
		posts.PATCH("/:id", protect, postsH.UpdateOne)
		posts.DELETE("/:id", protect, postsH.DeleteOne)
	}

	categories := v1.Group("/categories")
	{
		categories.GET("", categoriesH.GetAll)
		categories.POST("", protect, adminOnly, categoriesH.CreateOne)
		categories.GET("/:id", protect, categoriesH.GetOneByID)
		categories.PATCH("/:id", protect, adminOnly, categoriesH.UpdateOne)
		categories.DELETE("/:id", protect, adminOnly, categoriesH.DeleteOne)
	}

	return r
}
