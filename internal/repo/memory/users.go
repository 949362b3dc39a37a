package memory

import (
	"context"
	"strings"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/google/uuid"
)

// UsersRepo hides deactivated accounts from every read, matching the SQL
// collection.
type UsersRepo struct {
	t *table[user.User]
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{t: newTable[user.User](user.Schema)}
}

func withActive(spec query.Spec) query.Spec {
	base := user.ActiveOnly()
	spec.Conditions = append(base.Conditions, spec.Conditions...)
	return spec
}

func (r *UsersRepo) Find(_ context.Context, spec query.Spec) ([]user.User, error) {
	return r.t.find(withActive(spec))
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	return r.FindOne(ctx, "id", id)
}

func (r *UsersRepo) FindOne(_ context.Context, field, value string) (user.User, error) {
	if field == "email" {
		value = user.NormalizeEmail(value)
	}
	return r.t.findOne(field, value, user.ActiveOnly())
}

// conflict must be called with the table lock held.
func (r *UsersRepo) conflict(username, email, exceptID string) error {
	for id, u := range r.t.items {
		if id == exceptID {
			continue
		}
		if username != "" && u.Username == username {
			return apperr.Duplicate("username", username)
		}
		if email != "" && u.Email == email {
			return apperr.Duplicate("email", email)
		}
	}
	return nil
}

// active must be called with the table lock held.
func (r *UsersRepo) active(id string) (user.User, error) {
	u, err := r.t.get(id)
	if err != nil {
		return user.User{}, err
	}
	if !u.Active {
		return user.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) Insert(_ context.Context, in user.NewUser) (user.User, error) {
	now := time.Now().UTC()
	role := in.Role
	if role == "" {
		role = user.RoleUser
	}

	u := user.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Username:     strings.TrimSpace(in.Username),
		Email:        user.NormalizeEmail(in.Email),
		Avatar:       in.Avatar,
		Role:         role,
		PasswordHash: in.PasswordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	if err := r.conflict(u.Username, u.Email, ""); err != nil {
		return user.User{}, err
	}
	r.t.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) UpdateByID(_ context.Context, id string, patch user.Patch) (user.User, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	u, err := r.active(id)
	if err != nil {
		return user.User{}, err
	}

	if patch.Empty() {
		return u, nil
	}

	var username, email string
	if patch.Username != nil {
		username = strings.TrimSpace(*patch.Username)
	}
	if patch.Email != nil {
		email = user.NormalizeEmail(*patch.Email)
	}
	if err := r.conflict(username, email, id); err != nil {
		return user.User{}, err
	}

	if patch.Name != nil {
		u.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Username != nil {
		u.Username = username
	}
	if patch.Email != nil {
		u.Email = email
	}
	if patch.Avatar != nil {
		u.Avatar = *patch.Avatar
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.Active != nil {
		u.Active = *patch.Active
	}
	u.UpdatedAt = time.Now().UTC()
	r.t.items[id] = u

	return u, nil
}

// DeleteByID deactivates the account. The record is kept.
func (r *UsersRepo) DeleteByID(_ context.Context, id string) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	u, err := r.active(id)
	if err != nil {
		return err
	}

	u.Active = false
	u.UpdatedAt = time.Now().UTC()
	r.t.items[id] = u

	return nil
}

func (r *UsersRepo) SetPassword(_ context.Context, id, hash string, changedAt *time.Time) (user.User, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	u, err := r.active(id)
	if err != nil {
		return user.User{}, err
	}

	u.PasswordHash = hash
	if changedAt != nil {
		at := *changedAt
		u.PasswordChangedAt = &at
	}
	u.ResetTokenHash = ""
	u.ResetExpiresAt = nil
	u.UpdatedAt = time.Now().UTC()
	r.t.items[id] = u

	return u, nil
}

func (r *UsersRepo) SetResetToken(_ context.Context, id, hash string, expiresAt time.Time) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	u, err := r.active(id)
	if err != nil {
		return err
	}

	u.ResetTokenHash = hash
	u.ResetExpiresAt = &expiresAt
	r.t.items[id] = u

	return nil
}

func (r *UsersRepo) ClearResetToken(_ context.Context, id string) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	u, err := r.t.get(id)
	if err != nil {
		return err
	}

	u.ResetTokenHash = ""
	u.ResetExpiresAt = nil
	r.t.items[id] = u

	return nil
}

// ResetPassword consumes a live reset token: the active user holding
// tokenHash gets passwordHash and the token is cleared in the same step.
func (r *UsersRepo) ResetPassword(_ context.Context, tokenHash, passwordHash string, now time.Time, changedAt *time.Time) (user.User, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	for id, u := range r.t.items {
		if !u.Active || u.ResetTokenHash == "" || u.ResetTokenHash != tokenHash {
			continue
		}
		if u.ResetExpiresAt == nil || !u.ResetExpiresAt.After(now) {
			continue
		}

		u.PasswordHash = passwordHash
		if changedAt != nil {
			at := *changedAt
			u.PasswordChangedAt = &at
		}
		u.ResetTokenHash = ""
		u.ResetExpiresAt = nil
		u.UpdatedAt = time.Now().UTC()
		r.t.items[id] = u

		return u, nil
	}
	return user.User{}, apperr.ErrNotFound
}

func (r *UsersRepo) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	var n int64
	for id, u := range r.t.items {
		if u.ResetExpiresAt == nil || u.ResetExpiresAt.After(now) {
			continue
		}
		u.ResetTokenHash = ""
		u.ResetExpiresAt = nil
		r.t.items[id] = u
		n++
	}
	return n, nil
}
