package memory

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/domain/category"
	"github.com/geocoder89/blogapi/internal/domain/post"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/stretchr/testify/require"
)

func TestPostsRepo_SlugCollisions(t *testing.T) {
	ctx := context.Background()
	repo := NewPostsRepo()

	var slugs []string
	for i := 0; i < 3; i++ {
		p, err := repo.Insert(ctx, post.CreateRequest{Title: "Hello World", Description: "d", Category: "c", Username: "sam"})
		require.NoError(t, err)
		slugs = append(slugs, p.Slug)
	}
	require.Equal(t, []string{"hello-world", "hello-world-2", "hello-world-3"}, slugs)

	// a prefix-sharing title is not a collision
	p, err := repo.Insert(ctx, post.CreateRequest{Title: "Hello World Again", Description: "d", Category: "c", Username: "sam"})
	require.NoError(t, err)
	require.Equal(t, "hello-world-again", p.Slug)

	got, err := repo.FindOne(ctx, "slug", "hello-world-2")
	require.NoError(t, err)
	require.Equal(t, "Hello World", got.Title)
}

func TestPostsRepo_UpdateKeepsOwnSlug(t *testing.T) {
	ctx := context.Background()
	repo := NewPostsRepo()

	p, err := repo.Insert(ctx, post.CreateRequest{Title: "Go Tips", Description: "d", Category: "c", Username: "sam"})
	require.NoError(t, err)

	title := "Go Tips"
	updated, err := repo.UpdateByID(ctx, p.ID, post.UpdateRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "go-tips", updated.Slug)
}

func TestPostsRepo_UpdateWithSameTitleKeepsSlugUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewPostsRepo()

	first, err := repo.Insert(ctx, post.CreateRequest{Title: "Hello World", Description: "d", Category: "c", Username: "sam"})
	require.NoError(t, err)
	second, err := repo.Insert(ctx, post.CreateRequest{Title: "Hello World", Description: "d", Category: "c", Username: "sam"})
	require.NoError(t, err)
	require.Equal(t, "hello-world-2", second.Slug)

	title, description := " Hello World ", "edited"
	updated, err := repo.UpdateByID(ctx, first.ID, post.UpdateRequest{Title: &title, Description: &description})
	require.NoError(t, err)
	require.Equal(t, "hello-world", updated.Slug)
	require.Equal(t, "edited", updated.Description)

	got, err := repo.FindOne(ctx, "slug", "hello-world")
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
}

func TestPostsRepo_SlugAfterDeleteDoesNotReuseSuffix(t *testing.T) {
	ctx := context.Background()
	repo := NewPostsRepo()

	a, err := repo.Insert(ctx, post.CreateRequest{Title: "Hello World", Description: "d", Category: "c", Username: "sam"})
	require.NoError(t, err)
	b, err := repo.Insert(ctx, post.CreateRequest{Title: "Hello World", Description: "d", Category: "c", Username: "sam"})
	require.NoError(t, err)
	require.Equal(t, "hello-world-2", b.Slug)

	require.NoError(t, repo.DeleteByID(ctx, a.ID))

	c, err := repo.Insert(ctx, post.CreateRequest{Title: "Hello World", Description: "d", Category: "c", Username: "sam"})
	require.NoError(t, err)
	require.Equal(t, "hello-world-3", c.Slug)
}

func TestPostsRepo_FindAppliesSpec(t *testing.T) {
	ctx := context.Background()
	repo := NewPostsRepo()

	for _, c := range []string{"go", "rust", "go", "zig"} {
		_, err := repo.Insert(ctx, post.CreateRequest{Title: "T " + c, Description: "d", Category: c, Username: "sam"})
		require.NoError(t, err)
	}

	spec := query.FromValues(query.Spec{}, url.Values{"category": {"go"}, "sort": {"title"}})
	got, err := repo.Find(ctx, spec)
	require.NoError(t, err)
	require.Len(t, got, 2)

	n, err := repo.DeleteMany(ctx, "sam")
	require.NoError(t, err)
	require.EqualValues(t, 4, n)

	got, err = repo.Find(ctx, query.Spec{})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestPostsRepo_MalformedAndMissingIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewPostsRepo()

	_, err := repo.FindByID(ctx, "abc")
	require.ErrorIs(t, err, apperr.ErrInvalidID)

	_, err = repo.FindByID(ctx, "7f1c7a0e-3a53-4a3e-9b2e-6f1f4d6c1a11")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	err = repo.DeleteByID(ctx, "7f1c7a0e-3a53-4a3e-9b2e-6f1f4d6c1a11")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPostsRepo_FindRejectsMalformedIDFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewPostsRepo()

	p, err := repo.Insert(ctx, post.CreateRequest{Title: "Go", Description: "d", Category: "c", Username: "sam"})
	require.NoError(t, err)

	_, err = repo.Find(ctx, query.FromValues(query.Spec{}, url.Values{"id": {"not-a-uuid"}}))
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindBadRequest, appErr.Kind)

	got, err := repo.Find(ctx, query.FromValues(query.Spec{}, url.Values{"id": {p.ID}}))
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestCategoriesRepo_UniqueName(t *testing.T) {
	ctx := context.Background()
	repo := NewCategoriesRepo()

	_, err := repo.Insert(ctx, category.CreateRequest{Name: "tech"})
	require.NoError(t, err)

	_, err = repo.Insert(ctx, category.CreateRequest{Name: " tech "})
	var dup *apperr.DuplicateError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "name", dup.Field)
}

func TestUsersRepo_SoftDeleteHidesUser(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	u, err := repo.Insert(ctx, user.NewUser{Name: "Sam Doe", Username: "sam", Email: "SAM@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	require.Equal(t, "sam@example.com", u.Email)
	require.Equal(t, user.RoleUser, u.Role)

	_, err = repo.Insert(ctx, user.NewUser{Name: "Sam Two", Username: "sam2", Email: "sam@example.com", PasswordHash: "h"})
	var dup *apperr.DuplicateError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "email", dup.Field)

	require.NoError(t, repo.DeleteByID(ctx, u.ID))

	_, err = repo.FindByID(ctx, u.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = repo.FindOne(ctx, "username", "sam")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	all, err := repo.Find(ctx, query.Spec{})
	require.NoError(t, err)
	require.Empty(t, all)

	// the username stays reserved
	_, err = repo.Insert(ctx, user.NewUser{Name: "Again", Username: "sam", Email: "new@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, apperr.ErrDuplicate)
}

func TestUsersRepo_ResetTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()
	now := time.Now().UTC()

	u, err := repo.Insert(ctx, user.NewUser{Name: "Sam", Username: "sam", Email: "sam@example.com", PasswordHash: "old"})
	require.NoError(t, err)

	require.NoError(t, repo.SetResetToken(ctx, u.ID, "hash", now.Add(10*time.Minute)))

	changed := now.Add(-time.Second)

	_, err = repo.ResetPassword(ctx, "hash", "late", now.Add(11*time.Minute), &changed)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = repo.ResetPassword(ctx, "other", "wrong", now, &changed)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	updated, err := repo.ResetPassword(ctx, "hash", "new", now, &changed)
	require.NoError(t, err)
	require.Equal(t, u.ID, updated.ID)
	require.Equal(t, "new", updated.PasswordHash)
	require.Empty(t, updated.ResetTokenHash)
	require.Nil(t, updated.ResetExpiresAt)
	require.NotNil(t, updated.PasswordChangedAt)

	_, err = repo.ResetPassword(ctx, "hash", "again", now, &changed)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	again, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new", again.PasswordHash)
}

func TestUsersRepo_ResetPasswordConsumesTokenOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()
	now := time.Now().UTC()

	u, err := repo.Insert(ctx, user.NewUser{Name: "Sam", Username: "sam", Email: "sam@example.com", PasswordHash: "old"})
	require.NoError(t, err)
	require.NoError(t, repo.SetResetToken(ctx, u.ID, "hash", now.Add(10*time.Minute)))

	const attempts = 8
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ResetPassword(ctx, "hash", "new", now, nil); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins.Load())
}

func TestUsersRepo_ClearExpiredResetTokens(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()
	now := time.Now().UTC()

	a, err := repo.Insert(ctx, user.NewUser{Name: "A", Username: "aaa", Email: "a@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	b, err := repo.Insert(ctx, user.NewUser{Name: "B", Username: "bbb", Email: "b@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	require.NoError(t, repo.SetResetToken(ctx, a.ID, "ha", now.Add(-time.Minute)))
	require.NoError(t, repo.SetResetToken(ctx, b.ID, "hb", now.Add(time.Minute)))

	n, err := repo.ClearExpiredResetTokens(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = repo.ResetPassword(ctx, "ha", "x", now.Add(-2*time.Minute), nil)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = repo.ResetPassword(ctx, "hb", "x", now, nil)
	require.NoError(t, err)
}
