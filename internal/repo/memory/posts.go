package memory

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/geocoder89/blogapi/internal/domain/post"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/google/uuid"
)

type PostsRepo struct {
	t *table[post.Post]
}

func NewPostsRepo() *PostsRepo {
	return &PostsRepo{t: newTable[post.Post](post.Schema)}
}

func (r *PostsRepo) Find(_ context.Context, spec query.Spec) ([]post.Post, error) {
	return r.t.find(spec)
}

func (r *PostsRepo) FindByID(ctx context.Context, id string) (post.Post, error) {
	return r.FindOne(ctx, "id", id)
}

func (r *PostsRepo) FindOne(_ context.Context, field, value string) (post.Post, error) {
	return r.t.findOne(field, value, query.Spec{})
}

// nextSlug must be called with the table lock held.
func (r *PostsRepo) nextSlug(title, exceptID string) string {
	base := post.BaseSlug(title)
	re := regexp.MustCompile(post.SlugPattern(base))

	var existing []string
	for id, p := range r.t.items {
		if id != exceptID && re.MatchString(p.Slug) {
			existing = append(existing, p.Slug)
		}
	}
	return post.Disambiguate(base, existing)
}

func (r *PostsRepo) Insert(_ context.Context, req post.CreateRequest) (post.Post, error) {
	now := time.Now().UTC()

	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	p := post.Post{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Slug:        r.nextSlug(req.Title, ""),
		Description: req.Description,
		Username:    req.Username,
		Category:    strings.TrimSpace(req.Category),
		Photo:       req.Photo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.t.items[p.ID] = p

	return p, nil
}

func (r *PostsRepo) UpdateByID(_ context.Context, id string, req post.UpdateRequest) (post.Post, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	p, err := r.t.get(id)
	if err != nil {
		return post.Post{}, err
	}

	changed := false
	if req.Title != nil {
		if title := strings.TrimSpace(*req.Title); title != p.Title {
			p.Title = title
			p.Slug = r.nextSlug(title, id)
			changed = true
		}
	}
	if req.Description != nil {
		p.Description = *req.Description
		changed = true
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
		changed = true
	}
	if req.Photo != nil {
		p.Photo = *req.Photo
		changed = true
	}

	if changed {
		p.UpdatedAt = time.Now().UTC()
		r.t.items[id] = p
	}

	return p, nil
}

func (r *PostsRepo) DeleteByID(_ context.Context, id string) error {
	return r.t.delete(id)
}

func (r *PostsRepo) DeleteMany(_ context.Context, username string) (int64, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	var n int64
	for id, p := range r.t.items {
		if p.Username == username {
			delete(r.t.items, id)
			n++
		}
	}
	return n, nil
}
