package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/domain/category"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/google/uuid"
)

const categoryColumns = `id, name, created_at, updated_at`

type CategoriesRepo struct {
	db  DB
	obs Observer
}

func NewCategoriesRepo(db DB) *CategoriesRepo {
	return &CategoriesRepo{db: db, obs: noopObserver{}}
}

func (r *CategoriesRepo) WithObserver(obs Observer) *CategoriesRepo {
	r.obs = obs
	return r
}

func scanCategory(row rowScanner) (category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *CategoriesRepo) Find(ctx context.Context, spec query.Spec) ([]category.Category, error) {
	compiled, err := query.Compile(spec, category.Schema, 1)
	if err != nil {
		return nil, err
	}

	page, args := compiled.Page()
	sql := strings.Join([]string{"SELECT", categoryColumns, "FROM categories", compiled.Where, compiled.OrderBy, page}, " ")

	out := make([]category.Category, 0)

	err = r.obs.ObserveDB("categories.find", func() error {
		rows, err := r.db.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanCategory(rows)
			if err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, mapErr(err, "")
	}
	return out, nil
}

func (r *CategoriesRepo) FindByID(ctx context.Context, id string) (category.Category, error) {
	return r.FindOne(ctx, "id", id)
}

func (r *CategoriesRepo) FindOne(ctx context.Context, field, value string) (category.Category, error) {
	f, ok := category.Schema.Lookup(field)
	if !ok {
		return category.Category{}, apperr.BadRequest("Invalid lookup field: " + field)
	}

	var c category.Category
	err := r.obs.ObserveDB("categories.find_one", func() error {
		var err error
		c, err = scanCategory(r.db.QueryRow(ctx,
			`SELECT `+categoryColumns+` FROM categories WHERE `+f.Column+` = $1`, value))
		return err
	})

	return c, mapErr(err, value)
}

func (r *CategoriesRepo) Insert(ctx context.Context, req category.CreateRequest) (category.Category, error) {
	now := time.Now().UTC()
	name := strings.TrimSpace(req.Name)

	var c category.Category
	err := r.obs.ObserveDB("categories.insert", func() error {
		var err error
		c, err = scanCategory(r.db.QueryRow(ctx,
			`INSERT INTO categories (id, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			RETURNING `+categoryColumns,
			uuid.NewString(), name, now, now))
		return err
	})

	return c, mapErr(err, name)
}

func (r *CategoriesRepo) UpdateByID(ctx context.Context, id string, req category.UpdateRequest) (category.Category, error) {
	set := newSetList(id)
	value := ""
	if req.Name != nil {
		value = strings.TrimSpace(*req.Name)
		set.add("name", value)
	}

	if set.empty() {
		return r.FindByID(ctx, id)
	}

	var c category.Category
	err := r.obs.ObserveDB("categories.update", func() error {
		var err error
		c, err = scanCategory(r.db.QueryRow(ctx,
			`UPDATE categories SET `+strings.Join(set.parts, ", ")+`, updated_at = NOW()
			WHERE id = $1
			RETURNING `+categoryColumns,
			set.args...))
		return err
	})

	return c, mapErr(err, value)
}

func (r *CategoriesRepo) DeleteByID(ctx context.Context, id string) error {
	return r.obs.ObserveDB("categories.delete", func() error {
		tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
		if err != nil {
			return mapErr(err, id)
		}

		// if no rows were deleted as a result return a not found error
		if tag.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}
