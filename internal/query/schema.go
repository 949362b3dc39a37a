package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/google/uuid"
)

type Kind int

const (
	KindString Kind = iota
	KindInt
	KindTime
	KindBool
	KindUUID
)

type Field struct {
	Column string
	Kind   Kind
}

// Schema maps public (JSON) field names to storage columns. Only fields
// listed here can be filtered or sorted on.
type Schema struct {
	Table  string
	Fields map[string]Field
}

func (s Schema) Lookup(name string) (Field, bool) {
	f, ok := s.Fields[name]
	return f, ok
}

// Validate checks every condition and sort key of spec against the schema.
func (s Schema) Validate(spec Spec) error {
	for _, c := range spec.Conditions {
		field, ok := s.Lookup(c.Field)
		if !ok {
			return apperr.BadRequest(fmt.Sprintf("Invalid filter field: %s", c.Field))
		}
		if !c.Op.Valid() {
			return apperr.BadRequest(fmt.Sprintf("Invalid filter operator %q on %s", c.Op, c.Field))
		}
		if len(c.Values) == 0 {
			return apperr.BadRequest(fmt.Sprintf("Missing value for filter %s", c.Field))
		}
		for _, v := range c.Values {
			if _, err := field.Parse(v); err != nil {
				return apperr.BadRequest(fmt.Sprintf("Invalid value for %s: %s", c.Field, v))
			}
		}
	}

	for _, k := range spec.Sort {
		if _, ok := s.Lookup(k.Field); !ok {
			return apperr.BadRequest(fmt.Sprintf("Invalid sort field: %s", k.Field))
		}
	}

	return nil
}

// Parse converts a raw query value into the Go type stored for the field.
func (f Field) Parse(raw string) (any, error) {
	switch f.Kind {
	case KindInt:
		return strconv.Atoi(strings.TrimSpace(raw))
	case KindBool:
		return strconv.ParseBool(strings.TrimSpace(raw))
	case KindTime:
		return parseTime(raw)
	case KindUUID:
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		return id.String(), nil
	default:
		return raw, nil
	}
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", raw)
}
