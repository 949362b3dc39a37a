package query_test

import (
	"encoding/json"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/geocoder89/blogapi/internal/query"
	"github.com/stretchr/testify/require"
)

var articleSchema = query.Schema{
	Table: "articles",
	Fields: map[string]query.Field{
		"id":        {Column: "id"},
		"title":     {Column: "title"},
		"views":     {Column: "views", Kind: query.KindInt},
		"published": {Column: "published", Kind: query.KindBool},
		"createdAt": {Column: "created_at", Kind: query.KindTime},
	},
}

type article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Views     int       `json:"views"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a article) QueryFields() map[string]any {
	return map[string]any{
		"id":        a.ID,
		"title":     a.Title,
		"views":     a.Views,
		"published": a.Published,
		"createdAt": a.CreatedAt,
	}
}

func seedArticles(n int) []article {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]article, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, article{
			ID:        fmt.Sprintf("id-%02d", i),
			Title:     fmt.Sprintf("Article %02d", i),
			Views:     i * 10,
			Published: i%2 == 0,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestCompileRendersParameterizedSQL(t *testing.T) {
	raw := url.Values{
		"views[gte]": {"10"},
		"views[lte]": {"50"},
		"title":      {"a", "b"},
		"sort":       {"-views,title"},
		"page":       {"2"},
		"limit":      {"5"},
	}

	compiled, err := query.Compile(query.FromValues(query.Spec{}, raw), articleSchema, 1)
	require.NoError(t, err)

	require.Equal(t, "WHERE title IN ($1, $2) AND views >= $3 AND views <= $4", compiled.Where)
	require.Equal(t, "ORDER BY views DESC, title ASC, id DESC", compiled.OrderBy)
	require.Equal(t, []any{"a", "b", 10, 50}, compiled.Args)

	clause, args := compiled.Page()
	require.Equal(t, "LIMIT $5 OFFSET $6", clause)
	require.Equal(t, []any{"a", "b", 10, 50, 5, 5}, args)
}

func TestCompileRejectsUnknownFieldsAndOperators(t *testing.T) {
	tests := []url.Values{
		{"password": {"x"}},
		{"views[ne]": {"3"}},
		{"views[gte]": {"lots"}},
		{"sort": {"secret"}},
	}

	for _, raw := range tests {
		_, err := query.Compile(query.FromValues(query.Spec{}, raw), articleSchema, 1)

		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr, "query %v", raw)
		require.Equal(t, apperr.KindBadRequest, appErr.Kind)
	}
}

func TestUUIDFieldRejectsMalformedValues(t *testing.T) {
	schema := query.Schema{Table: "things", Fields: map[string]query.Field{
		"id": {Column: "id", Kind: query.KindUUID},
	}}

	_, err := query.Compile(query.FromValues(query.Spec{}, url.Values{"id": {"not-a-uuid"}}), schema, 1)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindBadRequest, appErr.Kind)

	v, err := schema.Fields["id"].Parse(" 7F1C7A0E-3A53-4A3E-9B2E-6F1F4D6C1A11 ")
	require.NoError(t, err)
	require.Equal(t, "7f1c7a0e-3a53-4a3e-9b2e-6f1f4d6c1a11", v)
}

func TestApplyPaginationBounds(t *testing.T) {
	docs := seedArticles(23)

	for page := 1; page <= 4; page++ {
		for _, limit := range []int{1, 5, 10} {
			raw := url.Values{"page": {fmt.Sprint(page)}, "limit": {fmt.Sprint(limit)}, "sort": {"createdAt"}}
			spec := query.FromValues(query.Spec{}, raw)

			got, err := query.Apply(docs, spec, articleSchema)
			require.NoError(t, err)
			require.LessOrEqual(t, len(got), limit)

			if len(got) > 0 {
				require.Equal(t, docs[spec.Skip].ID, got[0].ID, "first doc must sit at the skip offset")
			}
		}
	}
}

func TestApplyHugePageIsEmpty(t *testing.T) {
	docs := seedArticles(5)

	spec := query.FromValues(query.Spec{}, url.Values{"page": {"100000000000000000"}})
	require.GreaterOrEqual(t, spec.Skip, 0)

	got, err := query.Apply(docs, spec, articleSchema)
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = query.Apply(docs, query.Spec{Skip: -10, Limit: 2}, articleSchema)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestApplyRangeFilterIsExact(t *testing.T) {
	docs := seedArticles(20)
	raw := url.Values{"views[gte]": {"40"}, "views[lte]": {"120"}}

	got, err := query.Apply(docs, query.FromValues(query.Spec{}, raw), articleSchema)
	require.NoError(t, err)

	want := 0
	for _, d := range docs {
		if d.Views >= 40 && d.Views <= 120 {
			want++
		}
	}
	require.Len(t, got, want)
	for _, d := range got {
		require.GreaterOrEqual(t, d.Views, 40)
		require.LessOrEqual(t, d.Views, 120)
	}
}

func TestApplyDefaultSortIsNewestFirst(t *testing.T) {
	docs := seedArticles(10)

	got, err := query.Apply(docs, query.FromValues(query.Spec{}, url.Values{}), articleSchema)
	require.NoError(t, err)
	require.Len(t, got, 10)

	for i := 1; i < len(got); i++ {
		require.False(t, got[i].CreatedAt.After(got[i-1].CreatedAt))
	}
}

func TestApplyBoolAndTimeFilters(t *testing.T) {
	docs := seedArticles(10)
	raw := url.Values{"published": {"true"}, "createdAt[gt]": {"2024-01-01T03:00:00Z"}}

	got, err := query.Apply(docs, query.FromValues(query.Spec{}, raw), articleSchema)
	require.NoError(t, err)

	for _, d := range got {
		require.True(t, d.Published)
		require.True(t, d.CreatedAt.After(time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)))
	}
	require.Len(t, got, 3) // ids 4, 6, 8
}

func TestProjectKeepsIDAndRequestedFields(t *testing.T) {
	docs := seedArticles(2)

	out, err := query.Project(docs, []string{"title"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	first, ok := out[0].(map[string]json.RawMessage)
	require.True(t, ok)
	require.Len(t, first, 2)
	require.Contains(t, first, "id")
	require.Contains(t, first, "title")
}
