package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const ResetTokenTTL = 10 * time.Minute

// ResetToken is a freshly minted password-reset secret. Raw goes to the
// user; only Hash and ExpiresAt are persisted.
type ResetToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

func NewResetToken(now time.Time, ttl time.Duration) (ResetToken, error) {
	if ttl <= 0 {
		ttl = ResetTokenTTL
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return ResetToken{}, err
	}

	raw := hex.EncodeToString(b)

	return ResetToken{
		Raw:       raw,
		Hash:      HashResetToken(raw),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// HashResetToken is the lookup key for a presented reset token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
