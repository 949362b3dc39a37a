package memory

import (
	"sync"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/google/uuid"
)

// table is a mutex-guarded map of documents keyed by id. Reads evaluate a
// query.Spec with the same schema the SQL collections compile against.
type table[T query.Document] struct {
	mu     sync.RWMutex
	items  map[string]T
	schema query.Schema
}

func newTable[T query.Document](schema query.Schema) *table[T] {
	return &table[T]{
		items:  make(map[string]T),
		schema: schema,
	}
}

// snapshot must be called with mu held.
func (t *table[T]) snapshot() []T {
	out := make([]T, 0, len(t.items))
	for _, v := range t.items {
		out = append(out, v)
	}
	return out
}

func (t *table[T]) find(spec query.Spec) ([]T, error) {
	t.mu.RLock()
	docs := t.snapshot()
	t.mu.RUnlock()

	out, err := query.Apply(docs, spec, t.schema)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = make([]T, 0)
	}
	return out, nil
}

// findOne returns the first document whose field equals value. base adds
// fixed predicates such as the active flag.
func (t *table[T]) findOne(field, value string, base query.Spec) (T, error) {
	var zero T

	if _, ok := t.schema.Lookup(field); !ok {
		return zero, apperr.BadRequest("Invalid lookup field: " + field)
	}
	if field == "id" {
		if err := uuid.Validate(value); err != nil {
			return zero, apperr.ErrInvalidID
		}
	}

	spec := base.Where(field, query.OpEq, value)
	spec.Limit = 1

	out, err := t.find(spec)
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, apperr.ErrNotFound
	}
	return out[0], nil
}

// get must be called with mu held.
func (t *table[T]) get(id string) (T, error) {
	var zero T
	if err := uuid.Validate(id); err != nil {
		return zero, apperr.ErrInvalidID
	}

	v, ok := t.items[id]
	if !ok {
		return zero, apperr.ErrNotFound
	}
	return v, nil
}

func (t *table[T]) delete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.get(id); err != nil {
		return err
	}
	delete(t.items, id)
	return nil
}
