// Package query turns raw request query parameters into a Spec: filter
// conditions, sort keys, a field projection and a page window. Stores
// compile a Spec against their Schema and execute it once.
package query

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type Op string

const (
	OpEq  Op = "eq"
	OpIn  Op = "in"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

func (o Op) Valid() bool {
	switch o {
	case OpEq, OpIn, OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000
	DefaultSort  = "-createdAt"
)

var reservedParams = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

// Condition is one field comparison. Values holds a single element for
// every operator except OpIn.
type Condition struct {
	Field  string
	Op     Op
	Values []string
}

type SortKey struct {
	Field string
	Desc  bool
}

type Spec struct {
	Conditions []Condition
	Sort       []SortKey
	Fields     []string
	Page       int
	Limit      int
	Skip       int
}

// Where returns a copy of s with an extra equality condition. Used to
// compose fixed predicates (e.g. active users) ahead of request filters.
func (s Spec) Where(field string, op Op, values ...string) Spec {
	out := s
	out.Conditions = append(append([]Condition(nil), s.Conditions...), Condition{Field: field, Op: op, Values: values})
	return out
}

type Features struct {
	spec Spec
	raw  url.Values
}

// NewFeatures starts from base (conditions every request must satisfy)
// and the raw request query. Stages are meant to be chained in order:
// Filter, Sort, LimitFields, Paginate.
func NewFeatures(base Spec, raw url.Values) *Features {
	spec := base
	spec.Conditions = append([]Condition(nil), base.Conditions...)

	return &Features{spec: spec, raw: raw}
}

// Filter turns every non-reserved parameter into a condition. A key of the
// form field[op] becomes a comparison; several operators on one field are
// ANDed. Repeated plain keys become an OpIn match.
func (f *Features) Filter() *Features {
	keys := make([]string, 0, len(f.raw))
	for k := range f.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := f.raw[key]
		if len(values) == 0 {
			continue
		}

		field, op := splitOperator(key)
		if _, ok := reservedParams[field]; ok {
			continue
		}

		switch {
		case op == "" && len(values) > 1:
			f.spec.Conditions = append(f.spec.Conditions, Condition{Field: field, Op: OpIn, Values: values})
		case op == "":
			f.spec.Conditions = append(f.spec.Conditions, Condition{Field: field, Op: OpEq, Values: values[:1]})
		default:
			// last value wins for comparisons, like a repeated scalar param
			f.spec.Conditions = append(f.spec.Conditions, Condition{Field: field, Op: Op(op), Values: values[len(values)-1:]})
		}
	}

	return f
}

func (f *Features) Sort() *Features {
	raw := strings.Join(f.raw["sort"], ",")
	if strings.TrimSpace(raw) == "" {
		raw = DefaultSort
	}

	keys := make([]SortKey, 0, 2)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "-" {
			continue
		}

		if strings.HasPrefix(part, "-") {
			keys = append(keys, SortKey{Field: part[1:], Desc: true})
			continue
		}
		keys = append(keys, SortKey{Field: strings.TrimPrefix(part, "+")})
	}

	if len(keys) == 0 {
		keys = []SortKey{{Field: "createdAt", Desc: true}}
	}

	f.spec.Sort = keys
	return f
}

func (f *Features) LimitFields() *Features {
	raw := strings.Join(f.raw["fields"], ",")

	var fields []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		fields = append(fields, part)
	}

	f.spec.Fields = fields
	return f
}

// Paginate coerces page and limit. Non-numeric or non-positive input falls
// back to the defaults; limit is clamped to MaxLimit and page is clamped so
// the skip offset fits in an int.
func (f *Features) Paginate() *Features {
	page := positiveInt(f.raw.Get("page"), DefaultPage)
	limit := positiveInt(f.raw.Get("limit"), DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if maxPage := math.MaxInt/limit + 1; page > maxPage {
		page = maxPage
	}

	f.spec.Page = page
	f.spec.Limit = limit
	f.spec.Skip = (page - 1) * limit
	return f
}

func (f *Features) Spec() Spec {
	return f.spec
}

// FromValues runs every stage in order.
func FromValues(base Spec, raw url.Values) Spec {
	return NewFeatures(base, raw).Filter().Sort().LimitFields().Paginate().Spec()
}

func splitOperator(key string) (field, op string) {
	open := strings.Index(key, "[")
	if open == -1 || !strings.HasSuffix(key, "]") {
		return key, ""
	}

	return key[:open], strings.ToLower(key[open+1 : len(key)-1])
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
