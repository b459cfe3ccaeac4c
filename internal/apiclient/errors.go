package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/kazz187/taskdesk/pkg/cerr"
)

// responseError converts a failed backend response into a cerr.Error. The
// backend reports failures as {"error": ...}, {"detail": ...} or a map of
// field names to messages.
func responseError(status int, body []byte) error {
	code := cerr.CodeFromHTTPStatus(status)
	if code == cerr.OK {
		code = cerr.Unknown
	}
	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "duplicate") || strings.Contains(lower, "unique") || strings.Contains(lower, "already exists") {
		code = cerr.AlreadyExists
	}
	return cerr.NewError(code, msg, fmt.Errorf("backend returned %d", status))
}

func errorMessage(body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"error", "detail", "message"} {
		if s, ok := fields[key].(string); ok && s != "" {
			return s
		}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, flatten(fields[k])))
	}
	return strings.Join(parts, "; ")
}

func flatten(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, flatten(e))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}
