package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/google/uuid"
)

const userColumns = `id, name, username, email, avatar, role, password_hash, active,
	password_changed_at, password_reset_token, password_reset_expires, created_at, updated_at`

// UsersRepo never returns deactivated accounts; every read carries the
// active predicate.
type UsersRepo struct {
	db  DB
	obs Observer
}

func NewUsersRepo(db DB) *UsersRepo {
	return &UsersRepo{db: db, obs: noopObserver{}}
}

func (r *UsersRepo) WithObserver(obs Observer) *UsersRepo {
	r.obs = obs
	return r
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u         user.User
		resetHash *string
	)

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Username,
		&u.Email,
		&u.Avatar,
		&u.Role,
		&u.PasswordHash,
		&u.Active,
		&u.PasswordChangedAt,
		&resetHash,
		&u.ResetExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if resetHash != nil {
		u.ResetTokenHash = *resetHash
	}
	return u, err
}

func (r *UsersRepo) queryOne(ctx context.Context, op, sql string, args ...any) (user.User, error) {
	var u user.User
	err := r.obs.ObserveDB(op, func() error {
		var err error
		u, err = scanUser(r.db.QueryRow(ctx, sql, args...))
		return err
	})
	return u, err
}

func (r *UsersRepo) Find(ctx context.Context, spec query.Spec) ([]user.User, error) {
	compiled, err := query.Compile(withActive(spec), user.Schema, 1)
	if err != nil {
		return nil, err
	}

	page, args := compiled.Page()
	sql := strings.Join([]string{"SELECT", userColumns, "FROM users", compiled.Where, compiled.OrderBy, page}, " ")

	out := make([]user.User, 0)

	err = r.obs.ObserveDB("users.find", func() error {
		rows, err := r.db.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, mapErr(err, "")
	}
	return out, nil
}

func withActive(spec query.Spec) query.Spec {
	base := user.ActiveOnly()
	spec.Conditions = append(base.Conditions, spec.Conditions...)
	return spec
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	return r.FindOne(ctx, "id", id)
}

func (r *UsersRepo) FindOne(ctx context.Context, field, value string) (user.User, error) {
	f, ok := user.Schema.Lookup(field)
	if !ok {
		return user.User{}, apperr.BadRequest("Invalid lookup field: " + field)
	}
	if field == "email" {
		value = user.NormalizeEmail(value)
	}

	u, err := r.queryOne(ctx, "users.find_one",
		`SELECT `+userColumns+` FROM users WHERE `+f.Column+` = $1 AND active`, value)
	return u, mapErr(err, value)
}

func (r *UsersRepo) Insert(ctx context.Context, in user.NewUser) (user.User, error) {
	now := time.Now().UTC()
	role := in.Role
	if role == "" {
		role = user.RoleUser
	}

	u, err := r.queryOne(ctx, "users.insert",
		`INSERT INTO users (id, name, username, email, avatar, role, password_hash, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9)
		RETURNING `+userColumns,
		uuid.NewString(),
		strings.TrimSpace(in.Name),
		strings.TrimSpace(in.Username),
		user.NormalizeEmail(in.Email),
		in.Avatar,
		role,
		in.PasswordHash,
		now,
		now,
	)

	return u, duplicateValue(mapErr(err, in.Username), map[string]string{
		"username": in.Username,
		"email":    in.Email,
	})
}

// duplicateValue reports the submitted value of whichever unique field
// collided, not just the last one written.
func duplicateValue(err error, values map[string]string) error {
	var dup *apperr.DuplicateError
	if errors.As(err, &dup) {
		if v, ok := values[dup.Field]; ok {
			dup.Value = v
		}
	}
	return err
}

func (r *UsersRepo) UpdateByID(ctx context.Context, id string, patch user.Patch) (user.User, error) {
	set := newSetList(id)
	values := make(map[string]string)

	if patch.Name != nil {
		set.add("name", strings.TrimSpace(*patch.Name))
	}
	if patch.Username != nil {
		values["username"] = strings.TrimSpace(*patch.Username)
		set.add("username", values["username"])
	}
	if patch.Email != nil {
		values["email"] = *patch.Email
		set.add("email", user.NormalizeEmail(*patch.Email))
	}
	if patch.Avatar != nil {
		set.add("avatar", *patch.Avatar)
	}
	if patch.Role != nil {
		set.add("role", *patch.Role)
	}
	if patch.Active != nil {
		set.add("active", *patch.Active)
	}

	if set.empty() {
		return r.FindByID(ctx, id)
	}

	u, err := r.queryOne(ctx, "users.update",
		`UPDATE users SET `+strings.Join(set.parts, ", ")+`, updated_at = NOW()
		WHERE id = $1 AND active
		RETURNING `+userColumns,
		set.args...)
	return u, duplicateValue(mapErr(err, id), values)
}

// DeleteByID deactivates the account. The row is kept.
func (r *UsersRepo) DeleteByID(ctx context.Context, id string) error {
	return r.obs.ObserveDB("users.deactivate", func() error {
		tag, err := r.db.Exec(ctx,
			`UPDATE users SET active = FALSE, updated_at = NOW() WHERE id = $1 AND active`, id)
		if err != nil {
			return mapErr(err, id)
		}

		if tag.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}

// SetPassword stores a new hash and clears any pending reset token.
// changedAt is left untouched when nil.
func (r *UsersRepo) SetPassword(ctx context.Context, id, hash string, changedAt *time.Time) (user.User, error) {
	u, err := r.queryOne(ctx, "users.set_password",
		`UPDATE users
		SET password_hash = $2,
			password_changed_at = COALESCE($3, password_changed_at),
			password_reset_token = NULL,
			password_reset_expires = NULL,
			updated_at = NOW()
		WHERE id = $1 AND active
		RETURNING `+userColumns,
		id, hash, changedAt)
	return u, mapErr(err, id)
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, hash string, expiresAt time.Time) error {
	return r.execOne(ctx, "users.set_reset_token",
		`UPDATE users SET password_reset_token = $2, password_reset_expires = $3 WHERE id = $1 AND active`,
		id, hash, expiresAt)
}

func (r *UsersRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.execOne(ctx, "users.clear_reset_token",
		`UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL WHERE id = $1`,
		id)
}

// ResetPassword consumes a live reset token. The token check and the
// password write are one statement, so a token can succeed only once.
func (r *UsersRepo) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time, changedAt *time.Time) (user.User, error) {
	u, err := r.queryOne(ctx, "users.reset_password",
		`UPDATE users
		SET password_hash = $2,
			password_changed_at = COALESCE($4, password_changed_at),
			password_reset_token = NULL,
			password_reset_expires = NULL,
			updated_at = NOW()
		WHERE password_reset_token = $1 AND password_reset_expires > $3 AND active
		RETURNING `+userColumns,
		tokenHash, passwordHash, now, changedAt)
	return u, mapErr(err, "")
}

// ClearExpiredResetTokens drops reset tokens that expired at or before now.
func (r *UsersRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.obs.ObserveDB("users.clear_expired_reset_tokens", func() error {
		tag, err := r.db.Exec(ctx,
			`UPDATE users
			SET password_reset_token = NULL, password_reset_expires = NULL
			WHERE password_reset_expires IS NOT NULL AND password_reset_expires <= $1`,
			now)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}

func (r *UsersRepo) execOne(ctx context.Context, op, sql string, args ...any) error {
	return r.obs.ObserveDB(op, func() error {
		tag, err := r.db.Exec(ctx, sql, args...)
		if err != nil {
			return mapErr(err, "")
		}
		if tag.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}
