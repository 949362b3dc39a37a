package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/domain/category"
	"github.com/geocoder89/blogapi/internal/domain/post"
	"github.com/geocoder89/blogapi/internal/domain/user"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

var postCols = []string{"id", "title", "slug", "description", "username", "category", "photo", "created_at", "updated_at"}

var userCols = []string{
	"id", "name", "username", "email", "avatar", "role", "password_hash", "active",
	"password_changed_at", "password_reset_token", "password_reset_expires", "created_at", "updated_at",
}

func TestPostsRepo_FindCompilesSpec(t *testing.T) {
	mock := newMock(t)
	repo := NewPostsRepo(mock)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	spec := query.Spec{
		Conditions: []query.Condition{{Field: "category", Op: query.OpEq, Values: []string{"tech"}}},
		Sort:       []query.SortKey{{Field: "createdAt", Desc: true}},
		Limit:      10,
		Skip:       10,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM posts WHERE category = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`)).
		WithArgs("tech", 10, 10).
		WillReturnRows(pgxmock.NewRows(postCols).
			AddRow("11111111-1111-1111-1111-111111111111", "Go", "go", "d", "sam", "tech", "", now, now))

	posts, err := repo.Find(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "go", posts[0].Slug)
}

func TestPostsRepo_FindRejectsUnknownField(t *testing.T) {
	mock := newMock(t)
	repo := NewPostsRepo(mock)

	spec := query.Spec{Conditions: []query.Condition{{Field: "password", Op: query.OpEq, Values: []string{"x"}}}}

	_, err := repo.Find(context.Background(), spec)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindBadRequest, appErr.Kind)
}

func TestPostsRepo_InsertDisambiguatesSlug(t *testing.T) {
	mock := newMock(t)
	repo := NewPostsRepo(mock)
	now := time.Now().UTC()

	// hello-world itself was deleted; the next suffix follows the highest in use
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT slug FROM posts WHERE slug ~ $1`)).
		WithArgs("^hello-world(-[0-9]+)?$", "").
		WillReturnRows(pgxmock.NewRows([]string{"slug"}).AddRow("hello-world-2"))

	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs(pgxmock.AnyArg(), "Hello World", "hello-world-3", "body", "sam", "tech", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(postCols).
			AddRow("22222222-2222-2222-2222-222222222222", "Hello World", "hello-world-3", "body", "sam", "tech", "", now, now))

	p, err := repo.Insert(context.Background(), post.CreateRequest{
		Title:       "Hello World",
		Description: "body",
		Category:    "tech",
		Username:    "sam",
	})
	require.NoError(t, err)
	require.Equal(t, "hello-world-3", p.Slug)
}

func TestPostsRepo_UpdateWithSameTitleKeepsSlug(t *testing.T) {
	mock := newMock(t)
	repo := NewPostsRepo(mock)
	now := time.Now().UTC()
	id := "55555555-5555-5555-5555-555555555555"

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT title FROM posts WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"title"}).AddRow("Hello World"))

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET description = $2, updated_at = NOW()`)).
		WithArgs(id, "edited").
		WillReturnRows(pgxmock.NewRows(postCols).
			AddRow(id, "Hello World", "hello-world", "edited", "sam", "tech", "", now, now))

	title, description := "Hello World", "edited"
	p, err := repo.UpdateByID(context.Background(), id, post.UpdateRequest{Title: &title, Description: &description})
	require.NoError(t, err)
	require.Equal(t, "hello-world", p.Slug)
}

func TestPostsRepo_UpdateWithNewTitleReslugs(t *testing.T) {
	mock := newMock(t)
	repo := NewPostsRepo(mock)
	now := time.Now().UTC()
	id := "66666666-6666-6666-6666-666666666666"

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT title FROM posts WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"title"}).AddRow("Draft"))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT slug FROM posts WHERE slug ~ $1`)).
		WithArgs("^hello-world(-[0-9]+)?$", id).
		WillReturnRows(pgxmock.NewRows([]string{"slug"}).AddRow("hello-world"))

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET title = $2, slug = $3, updated_at = NOW()`)).
		WithArgs(id, "Hello World", "hello-world-2").
		WillReturnRows(pgxmock.NewRows(postCols).
			AddRow(id, "Hello World", "hello-world-2", "d", "sam", "tech", "", now, now))

	title := "Hello World"
	p, err := repo.UpdateByID(context.Background(), id, post.UpdateRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "hello-world-2", p.Slug)
}

func TestPostsRepo_UpdateWithoutFieldsReadsRow(t *testing.T) {
	mock := newMock(t)
	repo := NewPostsRepo(mock)
	now := time.Now().UTC()
	id := "33333333-3333-3333-3333-333333333333"

	mock.ExpectQuery(regexp.QuoteMeta(`FROM posts WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(postCols).AddRow(id, "T", "t", "d", "sam", "c", "", now, now))

	p, err := repo.UpdateByID(context.Background(), id, post.UpdateRequest{})
	require.NoError(t, err)
	require.Equal(t, id, p.ID)
}

func TestPostsRepo_DeleteMany(t *testing.T) {
	mock := newMock(t)
	repo := NewPostsRepo(mock)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM posts WHERE username = $1`)).
		WithArgs("sam").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.DeleteMany(context.Background(), "sam")
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestCategoriesRepo_DeleteMissingIsNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewCategoriesRepo(mock)

	mock.ExpectExec(`DELETE FROM categories`).
		WithArgs("44444444-4444-4444-4444-444444444444").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.DeleteByID(context.Background(), "44444444-4444-4444-4444-444444444444")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCategoriesRepo_DuplicateName(t *testing.T) {
	mock := newMock(t)
	repo := NewCategoriesRepo(mock)

	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs(pgxmock.AnyArg(), "tech", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "categories_name_key"})

	_, err := repo.Insert(context.Background(), category.CreateRequest{Name: " tech "})

	var dup *apperr.DuplicateError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "name", dup.Field)
	require.Equal(t, "tech", dup.Value)
}

func TestCategoriesRepo_MalformedID(t *testing.T) {
	mock := newMock(t)
	repo := NewCategoriesRepo(mock)

	mock.ExpectQuery(`FROM categories WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation, Message: "invalid input syntax for type uuid"})

	_, err := repo.FindByID(context.Background(), "nope")
	require.ErrorIs(t, err, apperr.ErrInvalidID)
}

func TestUsersRepo_FindAddsActivePredicate(t *testing.T) {
	mock := newMock(t)
	repo := NewUsersRepo(mock)

	spec := query.Spec{Conditions: []query.Condition{{Field: "role", Op: query.OpEq, Values: []string{"admin"}}}}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE active = $1 AND role = $2`)).
		WithArgs(true, "admin").
		WillReturnRows(pgxmock.NewRows(userCols))

	users, err := repo.Find(context.Background(), spec)
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestUsersRepo_InsertDuplicateEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUsersRepo(mock)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "Sam Doe", "sam", "sam@example.com", "", user.RoleUser, "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})

	_, err := repo.Insert(context.Background(), user.NewUser{
		Name:         "Sam Doe",
		Username:     "sam",
		Email:        "Sam@Example.com",
		PasswordHash: "hash",
	})

	var dup *apperr.DuplicateError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "email", dup.Field)
	require.Equal(t, "Sam@Example.com", dup.Value)
	require.True(t, errors.Is(err, apperr.ErrDuplicate))
}

func TestUsersRepo_UpdateDuplicateReportsCollidingField(t *testing.T) {
	mock := newMock(t)
	repo := NewUsersRepo(mock)
	id := "77777777-7777-7777-7777-777777777777"

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET username = $2, email = $3`)).
		WithArgs(id, "taken", "new@example.com").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_key"})

	username, email := " taken ", "New@Example.com"
	_, err := repo.UpdateByID(context.Background(), id, user.Patch{Username: &username, Email: &email})

	var dup *apperr.DuplicateError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "username", dup.Field)
	require.Equal(t, "taken", dup.Value)
}

func TestUsersRepo_ResetPasswordMatchesLiveToken(t *testing.T) {
	mock := newMock(t)
	repo := NewUsersRepo(mock)
	now := time.Now().UTC()
	changed := now.Add(-time.Second)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE password_reset_token = $1 AND password_reset_expires > $3 AND active`)).
		WithArgs("abc123", "newhash", now, &changed).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(
			"55555555-5555-5555-5555-555555555555", "Sam Doe", "sam", "sam@example.com", "", "user", "newhash", true,
			&changed, (*string)(nil), (*time.Time)(nil), now, now,
		))

	u, err := repo.ResetPassword(context.Background(), "abc123", "newhash", now, &changed)
	require.NoError(t, err)
	require.Equal(t, "newhash", u.PasswordHash)
	require.Empty(t, u.ResetTokenHash)
}

func TestUsersRepo_ResetPasswordWithSpentTokenIsNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewUsersRepo(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE password_reset_token = $1`)).
		WithArgs("abc123", "newhash", now, (*time.Time)(nil)).
		WillReturnRows(pgxmock.NewRows(userCols))

	_, err := repo.ResetPassword(context.Background(), "abc123", "newhash", now, nil)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUsersRepo_DeleteIsSoft(t *testing.T) {
	mock := newMock(t)
	repo := NewUsersRepo(mock)
	id := "66666666-6666-6666-6666-666666666666"

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET active = FALSE`)).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.DeleteByID(context.Background(), id))
}

func TestUsersRepo_ClearExpiredResetTokens(t *testing.T) {
	mock := newMock(t)
	repo := NewUsersRepo(mock)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`password_reset_expires <= $1`)).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := repo.ClearExpiredResetTokens(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}
