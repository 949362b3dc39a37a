package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/domain/post"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const postColumns = `id, title, slug, description, username, category, photo, created_at, updated_at`

type PostsRepo struct {
	db  DB
	obs Observer
}

func NewPostsRepo(db DB) *PostsRepo {
	return &PostsRepo{db: db, obs: noopObserver{}}
}

func (r *PostsRepo) WithObserver(obs Observer) *PostsRepo {
	r.obs = obs
	return r
}

func scanPost(row rowScanner) (post.Post, error) {
	var p post.Post
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Description,
		&p.Username,
		&p.Category,
		&p.Photo,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r *PostsRepo) Find(ctx context.Context, spec query.Spec) ([]post.Post, error) {
	compiled, err := query.Compile(spec, post.Schema, 1)
	if err != nil {
		return nil, err
	}

	page, args := compiled.Page()
	sql := strings.Join([]string{"SELECT", postColumns, "FROM posts", compiled.Where, compiled.OrderBy, page}, " ")

	out := make([]post.Post, 0)

	err = r.obs.ObserveDB("posts.find", func() error {
		rows, err := r.db.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPost(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, mapErr(err, "")
	}
	return out, nil
}

func (r *PostsRepo) FindByID(ctx context.Context, id string) (post.Post, error) {
	return r.FindOne(ctx, "id", id)
}

func (r *PostsRepo) FindOne(ctx context.Context, field, value string) (post.Post, error) {
	f, ok := post.Schema.Lookup(field)
	if !ok {
		return post.Post{}, apperr.BadRequest("Invalid lookup field: " + field)
	}

	var p post.Post
	err := r.obs.ObserveDB("posts.find_one", func() error {
		var err error
		p, err = scanPost(r.db.QueryRow(ctx,
			`SELECT `+postColumns+` FROM posts WHERE `+f.Column+` = $1`, value))
		return err
	})

	return p, mapErr(err, value)
}

// nextSlug collects the slugs already holding base or a numbered variant
// of it. excludeID keeps a post from colliding with itself on update.
func (r *PostsRepo) nextSlug(ctx context.Context, title, excludeID string) (string, error) {
	base := post.BaseSlug(title)

	rows, err := r.db.Query(ctx,
		`SELECT slug FROM posts WHERE slug ~ $1 AND id::text <> $2`,
		post.SlugPattern(base), excludeID,
	)
	if err != nil {
		return "", err
	}

	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return "", err
	}

	return post.Disambiguate(base, existing), nil
}

func (r *PostsRepo) Insert(ctx context.Context, req post.CreateRequest) (post.Post, error) {
	now := time.Now().UTC()

	var p post.Post
	err := r.obs.ObserveDB("posts.insert", func() error {
		slug, err := r.nextSlug(ctx, req.Title, "")
		if err != nil {
			return err
		}

		p, err = scanPost(r.db.QueryRow(ctx,
			`INSERT INTO posts (id, title, slug, description, username, category, photo, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+postColumns,
			uuid.NewString(),
			strings.TrimSpace(req.Title),
			slug,
			req.Description,
			req.Username,
			strings.TrimSpace(req.Category),
			req.Photo,
			now,
			now,
		))
		return err
	})

	return p, mapErr(err, req.Title)
}

func (r *PostsRepo) UpdateByID(ctx context.Context, id string, req post.UpdateRequest) (post.Post, error) {
	set := newSetList(id)

	var p post.Post
	err := r.obs.ObserveDB("posts.update", func() error {
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)

			var current string
			if err := r.db.QueryRow(ctx, `SELECT title FROM posts WHERE id = $1`, id).Scan(&current); err != nil {
				return err
			}

			if title != current {
				slug, err := r.nextSlug(ctx, title, id)
				if err != nil {
					return err
				}
				set.add("title", title)
				set.add("slug", slug)
			}
		}
		if req.Description != nil {
			set.add("description", *req.Description)
		}
		if req.Category != nil {
			set.add("category", strings.TrimSpace(*req.Category))
		}
		if req.Photo != nil {
			set.add("photo", *req.Photo)
		}

		if set.empty() {
			var err error
			p, err = scanPost(r.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
			return err
		}

		var err error
		p, err = scanPost(r.db.QueryRow(ctx,
			`UPDATE posts SET `+strings.Join(set.parts, ", ")+`, updated_at = NOW()
			WHERE id = $1
			RETURNING `+postColumns,
			set.args...))
		return err
	})

	return p, mapErr(err, id)
}

func (r *PostsRepo) DeleteByID(ctx context.Context, id string) error {
	return r.obs.ObserveDB("posts.delete", func() error {
		tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
		if err != nil {
			return mapErr(err, id)
		}

		if tag.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}

// DeleteMany removes every post owned by username.
func (r *PostsRepo) DeleteMany(ctx context.Context, username string) (int64, error) {
	var n int64
	err := r.obs.ObserveDB("posts.delete_many", func() error {
		tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE username = $1`, username)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, mapErr(err, username)
}
