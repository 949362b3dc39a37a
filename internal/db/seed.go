package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/geocoder89/blogapi/internal/domain/category"
	"github.com/geocoder89/blogapi/internal/domain/post"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/geocoder89/blogapi/internal/security"
	"github.com/jackc/pgx/v5/pgconn"
)

type seedUser struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar"`
}

type SeedStores struct {
	Users interface {
		Insert(ctx context.Context, in user.NewUser) (user.User, error)
	}
	Posts interface {
		Insert(ctx context.Context, req post.CreateRequest) (post.Post, error)
	}
	Categories interface {
		Insert(ctx context.Context, req category.CreateRequest) (category.Category, error)
	}
}

type SeedCounts struct {
	Users      int
	Posts      int
	Categories int
}

// ImportDevData loads users.json, posts.json and categories.json from dir.
// Missing files are skipped. Plain-text passwords in users.json are hashed
// with cost.
func ImportDevData(ctx context.Context, dir string, stores SeedStores, cost int) (SeedCounts, error) {
	var counts SeedCounts

	var users []seedUser
	if err := readSeed(dir, "users.json", &users); err != nil {
		return counts, err
	}
	for _, u := range users {
		hash, err := security.HashPasswordCost(u.Password, cost)
		if err != nil {
			return counts, fmt.Errorf("user %s: %w", u.Username, err)
		}
		_, err = stores.Users.Insert(ctx, user.NewUser{
			Name:         u.Name,
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: hash,
			Role:         u.Role,
			Avatar:       u.Avatar,
		})
		if err != nil {
			return counts, fmt.Errorf("user %s: %w", u.Username, err)
		}
		counts.Users++
	}

	var categories []category.CreateRequest
	if err := readSeed(dir, "categories.json", &categories); err != nil {
		return counts, err
	}
	for _, c := range categories {
		if _, err := stores.Categories.Insert(ctx, c); err != nil {
			return counts, fmt.Errorf("category %s: %w", c.Name, err)
		}
		counts.Categories++
	}

	var posts []struct {
		post.CreateRequest
		Username string `json:"username"`
	}
	if err := readSeed(dir, "posts.json", &posts); err != nil {
		return counts, err
	}
	for _, p := range posts {
		req := p.CreateRequest
		req.Username = p.Username
		if _, err := stores.Posts.Insert(ctx, req); err != nil {
			return counts, fmt.Errorf("post %q: %w", req.Title, err)
		}
		counts.Posts++
	}

	return counts, nil
}

func readSeed(dir, name string, out any) error {
	body, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DeleteDevData removes every post, category and user.
func DeleteDevData(ctx context.Context, db execer) error {
	_, err := db.Exec(ctx, `TRUNCATE posts, categories, users`)
	return err
}
