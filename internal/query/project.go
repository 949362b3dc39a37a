package query

import "encoding/json"

// Project reduces each document to the requested public fields. The id is
// always kept. With no fields the documents are returned untouched.
func Project[T any](docs []T, fields []string) ([]any, error) {
	out := make([]any, 0, len(docs))

	if len(fields) == 0 {
		for _, d := range docs {
			out = append(out, d)
		}
		return out, nil
	}

	keep := make(map[string]struct{}, len(fields)+1)
	keep["id"] = struct{}{}
	for _, f := range fields {
		keep[f] = struct{}{}
	}

	for _, d := range docs {
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}

		var full map[string]json.RawMessage
		if err := json.Unmarshal(raw, &full); err != nil {
			return nil, err
		}

		projected := make(map[string]json.RawMessage, len(keep))
		for k, v := range full {
			if _, ok := keep[k]; ok {
				projected[k] = v
			}
		}
		out = append(out, projected)
	}

	return out, nil
}
