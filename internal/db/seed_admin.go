package db

import (
	"context"
	"errors"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/config"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/geocoder89/blogapi/internal/security"
)

type AdminStore interface {
	FindOne(ctx context.Context, field, value string) (user.User, error)
	Insert(ctx context.Context, in user.NewUser) (user.User, error)
}

// EnsureAdminUser creates the configured admin account unless one with the
// same email already exists. It reports whether a user was created.
func EnsureAdminUser(ctx context.Context, store AdminStore, cfg config.Config) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	// check if the user exists
	_, err := store.FindOne(ctx, "email", cfg.AdminEmail)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	username := cfg.AdminUsername
	if username == "" {
		username = "admin"
	}

	_, err = store.Insert(ctx, user.NewUser{
		Name:         cfg.AdminName,
		Username:     username,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
	})
	if err != nil {
		return false, err
	}

	return true, nil
}
