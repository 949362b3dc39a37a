package post

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/blogapi/internal/query"
	"github.com/gosimple/slug"
)

type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Username    string    `json:"username"`
	Category    string    `json:"category"`
	Photo       string    `json:"photo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required,max=60"`
	Photo       string `json:"photo" binding:"omitempty,max=500"`
	// Username is the owner and is always taken from the caller.
	Username string `json:"-"`
}

type UpdateRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,min=1"`
	Category    *string `json:"category" binding:"omitempty,min=1,max=60"`
	Photo       *string `json:"photo" binding:"omitempty,max=500"`
}

func (p Post) QueryFields() map[string]any {
	return map[string]any{
		"id":          p.ID,
		"title":       p.Title,
		"slug":        p.Slug,
		"description": p.Description,
		"username":    p.Username,
		"category":    p.Category,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
}

var Schema = query.Schema{
	Table: "posts",
	Fields: map[string]query.Field{
		"id":          {Column: "id", Kind: query.KindUUID},
		"title":       {Column: "title"},
		"slug":        {Column: "slug"},
		"description": {Column: "description"},
		"username":    {Column: "username"},
		"category":    {Column: "category"},
		"createdAt":   {Column: "created_at", Kind: query.KindTime},
		"updatedAt":   {Column: "updated_at", Kind: query.KindTime},
	},
}

// BaseSlug is the lowercase, hyphenated form of a title.
func BaseSlug(title string) string {
	s := slug.Make(title)
	if s == "" {
		return "post"
	}
	return s
}

// SlugPattern matches base itself and any numbered variant of it.
func SlugPattern(base string) string {
	return "^" + regexp.QuoteMeta(base) + "(-[0-9]+)?$"
}

// Disambiguate picks the slug for a new title given the slugs already
// holding base or a numbered variant of it. The bare base counts as 1, so
// the result is one past the highest suffix in use.
func Disambiguate(base string, existing []string) string {
	highest := 0
	for _, s := range existing {
		n := 0
		switch {
		case s == base:
			n = 1
		case strings.HasPrefix(s, base+"-"):
			v, err := strconv.Atoi(strings.TrimPrefix(s, base+"-"))
			if err != nil {
				continue
			}
			n = v
		default:
			continue
		}
		if n > highest {
			highest = n
		}
	}

	if highest == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(highest+1)
}
