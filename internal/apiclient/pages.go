package apiclient

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/kazz187/taskdesk/pkg/cerr"
)

type page[T any] struct {
	Results []T     `json:"results"`
	Next    *string `json:"next"`
}

// FetchAllPages GETs path and returns every item. The body is either a bare
// JSON array or a {results, next} page; next links are followed one after
// another until they run out.
func FetchAllPages[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	seen := map[string]bool{}
	for path != "" {
		if seen[path] {
			return nil, cerr.NewError(cerr.Internal, "pagination loops back to "+path, nil)
		}
		seen[path] = true

		var raw json.RawMessage
		if err := c.Get(ctx, path, &raw); err != nil {
			return nil, err
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '[' {
			var items []T
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, cerr.NewError(cerr.Internal, "failed to decode list", err)
			}
			return append(all, items...), nil
		}
		var p page[T]
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, cerr.NewError(cerr.Internal, "failed to decode page", err)
		}
		all = append(all, p.Results...)
		path = ""
		if p.Next != nil {
			path = *p.Next
		}
	}
	return all, nil
}
