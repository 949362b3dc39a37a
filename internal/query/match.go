package query

import (
	"sort"
	"strings"
	"time"
)

// Document exposes a value for every schema field, keyed by public name.
// In-process stores evaluate a Spec through it.
type Document interface {
	QueryFields() map[string]any
}

// Apply evaluates spec over docs the same way Compile's SQL would:
// filter, sort (with id as tiebreak), then skip/limit.
func Apply[T Document](docs []T, spec Spec, schema Schema) ([]T, error) {
	if err := schema.Validate(spec); err != nil {
		return nil, err
	}

	type row struct {
		doc    T
		fields map[string]any
	}

	rows := make([]row, 0, len(docs))
	for _, d := range docs {
		fields := d.QueryFields()
		ok, err := matches(fields, spec.Conditions, schema)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row{doc: d, fields: fields})
		}
	}

	keys := spec.Sort
	if _, ok := schema.Lookup("id"); ok {
		tieDesc := len(keys) > 0 && keys[0].Desc
		keys = append(append([]SortKey(nil), keys...), SortKey{Field: "id", Desc: tieDesc})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			c := compare(rows[i].fields[k.Field], rows[j].fields[k.Field])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	start := spec.Skip
	if start < 0 {
		start = 0
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if spec.Limit > 0 && start+spec.Limit < end {
		end = start + spec.Limit
	}

	out := make([]T, 0, end-start)
	for _, r := range rows[start:end] {
		out = append(out, r.doc)
	}

	return out, nil
}

func matches(fields map[string]any, conds []Condition, schema Schema) (bool, error) {
	for _, c := range conds {
		field, _ := schema.Lookup(c.Field)
		actual := fields[c.Field]

		if c.Op == OpIn {
			hit := false
			for _, raw := range c.Values {
				want, err := field.Parse(raw)
				if err != nil {
					return false, err
				}
				if compare(actual, want) == 0 {
					hit = true
					break
				}
			}
			if !hit {
				return false, nil
			}
			continue
		}

		want, err := field.Parse(c.Values[0])
		if err != nil {
			return false, err
		}

		cmp := compare(actual, want)
		var ok bool
		switch c.Op {
		case OpEq:
			ok = cmp == 0
		case OpGt:
			ok = cmp > 0
		case OpGte:
			ok = cmp >= 0
		case OpLt:
			ok = cmp < 0
		case OpLte:
			ok = cmp <= 0
		}
		if !ok {
			return false, nil
		}
	}

	return true, nil
}

// compare orders two values of the same schema kind. Mismatched or nil
// values sort before everything else.
func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 1
		}
		return strings.Compare(av, bv)
	case int:
		bv, ok := b.(int)
		if !ok {
			return 1
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 1
		}
		return av.Compare(bv)
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 1
		}
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	}

	if b == nil {
		return 0
	}
	return -1
}
