package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/blogapi/internal/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var ada = auth.Identity{
	ID:       "5f0c1f5e-8d59-4f43-9d57-3a7c1c2c0a11",
	Name:     "Ada Lovelace",
	Role:     "admin",
	Email:    "ada@example.com",
	Username: "ada",
}

func TestIssueAndVerify(t *testing.T) {
	m := auth.NewManager("secret", time.Hour)

	token, err := m.Issue(ada)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, ada, claims.Identity)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyRejectsExpiredAndTamperedAlike(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := auth.NewManager("secret", time.Hour).WithClock(func() time.Time { return issuedAt })

	token, err := m.Issue(ada)
	require.NoError(t, err)

	later := m.WithClock(func() time.Time { return issuedAt.Add(2 * time.Hour) })
	_, err = later.Verify(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	_, err = m.Verify(tampered)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	other := auth.NewManager("other-secret", time.Hour).WithClock(func() time.Time { return issuedAt })
	_, err = other.Verify(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := auth.Claims{
		Identity: ada,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = auth.NewManager("secret", time.Hour).Verify(signed)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestNewResetToken(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tok, err := auth.NewResetToken(now, 0)
	require.NoError(t, err)

	require.Len(t, tok.Raw, 64)
	require.Len(t, tok.Hash, 64)
	require.NotEqual(t, tok.Raw, tok.Hash)
	require.Equal(t, auth.HashResetToken(tok.Raw), tok.Hash)
	require.Equal(t, now.Add(10*time.Minute), tok.ExpiresAt)

	again, err := auth.NewResetToken(now, time.Minute)
	require.NoError(t, err)
	require.NotEqual(t, tok.Raw, again.Raw)
}
