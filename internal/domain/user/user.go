package user

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/geocoder89/blogapi/internal/query"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	Avatar            string     `json:"avatar"`
	Role              string     `json:"role"`
	PasswordHash      string     `json:"-"` // never expose hash in JSON
	Active            bool       `json:"-"`
	PasswordChangedAt *time.Time `json:"passwordChangedAt,omitempty"`
	ResetTokenHash    string     `json:"-"`
	ResetExpiresAt    *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// MarshalJSON adds the derived name parts and gravatar URL.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	first, last, _ := strings.Cut(strings.TrimSpace(u.Name), " ")

	return json.Marshal(struct {
		plain
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName,omitempty"`
		Gravatar  string `json:"gravatar"`
	}{
		plain:     plain(u),
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Gravatar:  Gravatar(u.Email),
	})
}

func Gravatar(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=200"
}

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at issuedAt. Compared at whole-second precision, like the
// token's iat claim.
func (u User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

func (u User) QueryFields() map[string]any {
	return map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"username":  u.Username,
		"email":     u.Email,
		"role":      u.Role,
		"active":    u.Active,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}

var Schema = query.Schema{
	Table: "users",
	Fields: map[string]query.Field{
		"id":        {Column: "id", Kind: query.KindUUID},
		"name":      {Column: "name"},
		"username":  {Column: "username"},
		"email":     {Column: "email"},
		"role":      {Column: "role"},
		"active":    {Column: "active", Kind: query.KindBool},
		"createdAt": {Column: "created_at", Kind: query.KindTime},
		"updatedAt": {Column: "updated_at", Kind: query.KindTime},
	},
}

// ActiveOnly is the base predicate for every user read. Soft-deleted
// accounts are invisible to lookups and listings.
func ActiveOnly() query.Spec {
	return query.Spec{}.Where("active", query.OpEq, "true")
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
