package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the collections use. pgxmock pools
// satisfy it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Observer times logical store operations (see observability.Prom).
type Observer interface {
	ObserveDB(op string, fn func() error) error
}

type noopObserver struct{}

func (noopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

type rowScanner interface {
	Scan(dest ...any) error
}

// uniqueFields maps unique constraint names to the public field they guard.
var uniqueFields = map[string]string{
	"users_username_key":  "username",
	"users_email_key":     "email",
	"categories_name_key": "name",
}

// mapErr converts driver errors into the store sentinels.
func mapErr(err error, value string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			field, ok := uniqueFields[pgErr.ConstraintName]
			if !ok {
				field = pgErr.ConstraintName
			}
			return apperr.Duplicate(field, value)
		case pgerrcode.InvalidTextRepresentation:
			return fmt.Errorf("%w: %s", apperr.ErrInvalidID, pgErr.Message)
		}
	}

	return err
}

// setList accumulates "col = $n" assignments for a partial update. $1 is
// always the row id.
type setList struct {
	parts []string
	args  []any
}

func newSetList(id string) *setList {
	return &setList{args: []any{id}}
}

func (s *setList) add(column string, value any) {
	s.args = append(s.args, value)
	s.parts = append(s.parts, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func (s *setList) empty() bool {
	return len(s.parts) == 0
}
