package security_test

import (
	"testing"

	"github.com/geocoder89/blogapi/internal/security"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheck(t *testing.T) {
	hash, err := security.HashPasswordCost("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "correct horse", hash)

	require.NoError(t, security.CheckPassword(hash, "correct horse"))
	require.ErrorIs(t, security.CheckPassword(hash, "wrong horse"), bcrypt.ErrMismatchedHashAndPassword)
}
