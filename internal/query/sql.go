package query

import (
	"fmt"
	"strings"
)

var sqlOperators = map[Op]string{
	OpEq:  "=",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

// SQL is a compiled Spec. Where and OrderBy are complete clauses (or empty
// for Where); Args are positional and numbered from the argStart passed to
// Compile. Page appends Limit and Offset as the last two args.
type SQL struct {
	Where   string
	OrderBy string
	Limit   int
	Offset  int
	Args    []any

	next int
}

// Compile validates spec against schema and renders parameterized SQL.
// Column names only ever come from the schema, never from the request.
func Compile(spec Spec, schema Schema, argStart int) (SQL, error) {
	if err := schema.Validate(spec); err != nil {
		return SQL{}, err
	}

	if argStart < 1 {
		argStart = 1
	}

	var (
		parts []string
		args  []any
	)
	param := argStart

	for _, c := range spec.Conditions {
		field, _ := schema.Lookup(c.Field)

		if c.Op == OpIn {
			placeholders := make([]string, len(c.Values))
			for i, raw := range c.Values {
				v, _ := field.Parse(raw)
				placeholders[i] = fmt.Sprintf("$%d", param)
				args = append(args, v)
				param++
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", field.Column, strings.Join(placeholders, ", ")))
			continue
		}

		v, _ := field.Parse(c.Values[0])
		parts = append(parts, fmt.Sprintf("%s %s $%d", field.Column, sqlOperators[c.Op], param))
		args = append(args, v)
		param++
	}

	out := SQL{Args: args, Limit: spec.Limit, Offset: spec.Skip, next: param}
	if len(parts) > 0 {
		out.Where = "WHERE " + strings.Join(parts, " AND ")
	}

	order := make([]string, 0, len(spec.Sort)+1)
	tieDesc := false
	for i, k := range spec.Sort {
		field, _ := schema.Lookup(k.Field)
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		if i == 0 {
			tieDesc = k.Desc
		}
		order = append(order, field.Column+" "+dir)
	}

	// id breaks ties so that page boundaries are stable between requests
	if id, ok := schema.Lookup("id"); ok {
		dir := "ASC"
		if tieDesc {
			dir = "DESC"
		}
		order = append(order, id.Column+" "+dir)
	}

	if len(order) > 0 {
		out.OrderBy = "ORDER BY " + strings.Join(order, ", ")
	}

	return out, nil
}

// Page renders the LIMIT/OFFSET clause using the next two placeholders and
// returns the full argument list.
func (s SQL) Page() (string, []any) {
	next := s.next
	if next < 1 {
		next = len(s.Args) + 1
	}
	clause := ""
	args := append([]any(nil), s.Args...)

	if s.Limit > 0 {
		clause = fmt.Sprintf("LIMIT $%d OFFSET $%d", next, next+1)
		args = append(args, s.Limit, s.Offset)
	}

	return clause, args
}
