package memory

import (
	"context"
	"strings"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/domain/category"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/google/uuid"
)

type CategoriesRepo struct {
	t *table[category.Category]
}

func NewCategoriesRepo() *CategoriesRepo {
	return &CategoriesRepo{t: newTable[category.Category](category.Schema)}
}

func (r *CategoriesRepo) Find(_ context.Context, spec query.Spec) ([]category.Category, error) {
	return r.t.find(spec)
}

func (r *CategoriesRepo) FindByID(ctx context.Context, id string) (category.Category, error) {
	return r.FindOne(ctx, "id", id)
}

func (r *CategoriesRepo) FindOne(_ context.Context, field, value string) (category.Category, error) {
	return r.t.findOne(field, value, query.Spec{})
}

// nameTaken must be called with the table lock held.
func (r *CategoriesRepo) nameTaken(name, exceptID string) bool {
	for id, c := range r.t.items {
		if id != exceptID && c.Name == name {
			return true
		}
	}
	return false
}

func (r *CategoriesRepo) Insert(_ context.Context, req category.CreateRequest) (category.Category, error) {
	now := time.Now().UTC()
	c := category.Category{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	if r.nameTaken(c.Name, "") {
		return category.Category{}, apperr.Duplicate("name", c.Name)
	}
	r.t.items[c.ID] = c

	return c, nil
}

func (r *CategoriesRepo) UpdateByID(_ context.Context, id string, req category.UpdateRequest) (category.Category, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	c, err := r.t.get(id)
	if err != nil {
		return category.Category{}, err
	}

	if req.Name == nil {
		return c, nil
	}

	name := strings.TrimSpace(*req.Name)
	if r.nameTaken(name, id) {
		return category.Category{}, apperr.Duplicate("name", name)
	}

	c.Name = name
	c.UpdatedAt = time.Now().UTC()
	r.t.items[id] = c

	return c, nil
}

func (r *CategoriesRepo) DeleteByID(_ context.Context, id string) error {
	return r.t.delete(id)
}
