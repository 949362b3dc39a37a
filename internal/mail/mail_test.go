package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubMailer struct {
	calls int
	err   error
}

func (s *stubMailer) Send(context.Context, Message) error {
	s.calls++
	return s.err
}

func TestProtectedMailer_OpensAfterThreshold(t *testing.T) {
	inner := &stubMailer{err: errors.New("smtp down")}
	m := NewProtectedMailer(inner, ProtectedMailerConfig{FailureThreshold: 2, Cooldown: time.Minute})

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	ctx := context.Background()
	require.Error(t, m.Send(ctx, Message{}))
	require.Error(t, m.Send(ctx, Message{}))
	require.ErrorIs(t, m.Send(ctx, Message{}), ErrCircuitOpen)
	require.Equal(t, 2, inner.calls)

	// after the cooldown one trial call goes through and closes the circuit
	now = now.Add(time.Minute)
	inner.err = nil
	require.NoError(t, m.Send(ctx, Message{}))
	require.NoError(t, m.Send(ctx, Message{}))
	require.Equal(t, 4, inner.calls)
}

func TestProtectedMailer_FailedTrialReopens(t *testing.T) {
	inner := &stubMailer{err: errors.New("smtp down")}
	m := NewProtectedMailer(inner, ProtectedMailerConfig{FailureThreshold: 1, Cooldown: time.Second})

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	ctx := context.Background()
	require.Error(t, m.Send(ctx, Message{}))
	require.ErrorIs(t, m.Send(ctx, Message{}), ErrCircuitOpen)

	now = now.Add(time.Second)
	require.EqualError(t, m.Send(ctx, Message{}), "smtp down")
	require.ErrorIs(t, m.Send(ctx, Message{}), ErrCircuitOpen)
}

func TestPasswordReset_ContainsLink(t *testing.T) {
	msg := PasswordReset("sam@example.com", "Sam <Doe>", "http://localhost/api/v1/users/reset-password/abc")

	require.Equal(t, "sam@example.com", msg.To)
	require.Contains(t, msg.Text, "reset-password/abc")
	require.Contains(t, msg.HTML, `href="http://localhost/api/v1/users/reset-password/abc"`)
	require.True(t, strings.Contains(msg.HTML, "Sam &lt;Doe&gt;"))
}
