package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/geocoder89/blogapi/internal/config"
	"github.com/geocoder89/blogapi/internal/db"
	"github.com/geocoder89/blogapi/internal/domain/category"
	"github.com/geocoder89/blogapi/internal/domain/post"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/geocoder89/blogapi/internal/repo/memory"
	"github.com/geocoder89/blogapi/internal/repo/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Users interface {
	Find(ctx context.Context, spec query.Spec) ([]user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	FindOne(ctx context.Context, field, value string) (user.User, error)
	Insert(ctx context.Context, in user.NewUser) (user.User, error)
	UpdateByID(ctx context.Context, id string, patch user.Patch) (user.User, error)
	DeleteByID(ctx context.Context, id string) error

	SetPassword(ctx context.Context, id, hash string, changedAt *time.Time) (user.User, error)
	SetResetToken(ctx context.Context, id, hash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time, changedAt *time.Time) (user.User, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type Posts interface {
	Find(ctx context.Context, spec query.Spec) ([]post.Post, error)
	FindByID(ctx context.Context, id string) (post.Post, error)
	FindOne(ctx context.Context, field, value string) (post.Post, error)
	Insert(ctx context.Context, req post.CreateRequest) (post.Post, error)
	UpdateByID(ctx context.Context, id string, req post.UpdateRequest) (post.Post, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, username string) (int64, error)
}

type Categories interface {
	Find(ctx context.Context, spec query.Spec) ([]category.Category, error)
	FindByID(ctx context.Context, id string) (category.Category, error)
	FindOne(ctx context.Context, field, value string) (category.Category, error)
	Insert(ctx context.Context, req category.CreateRequest) (category.Category, error)
	UpdateByID(ctx context.Context, id string, req category.UpdateRequest) (category.Category, error)
	DeleteByID(ctx context.Context, id string) error
}

// Stores is one set of collections behind the configured driver. Pool is
// nil for the memory driver.
type Stores struct {
	Driver     string
	Users      Users
	Posts      Posts
	Categories Categories
	Pool       *pgxpool.Pool
}

// Open connects the collections for cfg.StoreDriver. obs may be nil.
func Open(ctx context.Context, cfg config.Config, obs postgres.Observer) (*Stores, error) {
	switch cfg.StoreDriver {
	case DriverMemory:
		return &Stores{
			Driver:     DriverMemory,
			Users:      memory.NewUsersRepo(),
			Posts:      memory.NewPostsRepo(),
			Categories: memory.NewCategoriesRepo(),
		}, nil

	case DriverPostgres, "":
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}

		users := postgres.NewUsersRepo(pool)
		posts := postgres.NewPostsRepo(pool)
		categories := postgres.NewCategoriesRepo(pool)
		if obs != nil {
			users.WithObserver(obs)
			posts.WithObserver(obs)
			categories.WithObserver(obs)
		}

		return &Stores{
			Driver:     DriverPostgres,
			Users:      users,
			Posts:      posts,
			Categories: categories,
			Pool:       pool,
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// Migrate applies pending migrations; a no-op for the memory driver.
func (s *Stores) Migrate(ctx context.Context) ([]string, error) {
	if s.Pool == nil {
		return nil, nil
	}
	return db.Migrate(ctx, s.Pool)
}

// DeleteDevData truncates every collection. The memory driver holds no
// data outside the current process, so it is refused.
func (s *Stores) DeleteDevData(ctx context.Context) error {
	if s.Pool == nil {
		return fmt.Errorf("seed delete needs the %s driver, got %q", DriverPostgres, s.Driver)
	}
	return db.DeleteDevData(ctx, s.Pool)
}

func (s *Stores) Ping(ctx context.Context) error {
	if s.Pool == nil {
		return nil
	}
	return s.Pool.Ping(ctx)
}

func (s *Stores) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}
