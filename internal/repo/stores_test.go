package repo_test

import (
	"context"
	"testing"

	"github.com/geocoder89/blogapi/internal/config"
	"github.com/geocoder89/blogapi/internal/repo"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryDriver(t *testing.T) {
	ctx := context.Background()

	s, err := repo.Open(ctx, config.Config{StoreDriver: repo.DriverMemory}, nil)
	require.NoError(t, err)
	defer s.Close()

	require.Nil(t, s.Pool)
	require.NoError(t, s.Ping(ctx))

	applied, err := s.Migrate(ctx)
	require.NoError(t, err)
	require.Empty(t, applied)
}

func TestDeleteDevDataNeedsPostgres(t *testing.T) {
	ctx := context.Background()

	s, err := repo.Open(ctx, config.Config{StoreDriver: repo.DriverMemory}, nil)
	require.NoError(t, err)
	defer s.Close()

	err = s.DeleteDevData(ctx)
	require.ErrorContains(t, err, "postgres")
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := repo.Open(context.Background(), config.Config{StoreDriver: "mongo"}, nil)
	require.Error(t, err)
}
