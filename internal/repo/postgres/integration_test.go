//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/db"
	"github.com/geocoder89/blogapi/internal/domain/post"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestIntegration_PostgresCollections(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("blog"),
		tcpostgres.WithUsername("blog"),
		tcpostgres.WithPassword("blog"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applied, err := db.Migrate(ctx, pool)
	require.NoError(t, err)
	require.NotEmpty(t, applied)

	// second run is a no-op
	applied, err = db.Migrate(ctx, pool)
	require.NoError(t, err)
	require.Empty(t, applied)

	users := NewUsersRepo(pool)
	posts := NewPostsRepo(pool)

	sam, err := users.Insert(ctx, user.NewUser{Name: "Sam Doe", Username: "sam", Email: "sam@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	require.True(t, sam.Active)

	_, err = users.Insert(ctx, user.NewUser{Name: "Other", Username: "sam", Email: "other@example.com", PasswordHash: "h"})
	var dup *apperr.DuplicateError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "username", dup.Field)

	for i := 0; i < 3; i++ {
		_, err := posts.Insert(ctx, post.CreateRequest{Title: "Hello World", Description: "d", Category: "c", Username: "sam"})
		require.NoError(t, err)
	}

	spec := query.FromValues(query.Spec{}, map[string][]string{"sort": {"slug"}})
	list, err := posts.Find(ctx, spec)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{"hello-world", "hello-world-2", "hello-world-3"}, []string{list[0].Slug, list[1].Slug, list[2].Slug})

	_, err = posts.FindByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, apperr.ErrInvalidID)

	now := time.Now().UTC()
	require.NoError(t, users.SetResetToken(ctx, sam.ID, "hash", now.Add(-time.Minute)))
	_, err = users.ResetPassword(ctx, "hash", "new", now, nil)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	n, err := users.ClearExpiredResetTokens(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, users.DeleteByID(ctx, sam.ID))
	_, err = users.FindByID(ctx, sam.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	deleted, err := posts.DeleteMany(ctx, "sam")
	require.NoError(t, err)
	require.EqualValues(t, 3, deleted)
}
