package msgtemplate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
)

const exportVersion = "1.0"

type exportDocument struct {
	Version    string            `json:"version"`
	ExportDate string            `json:"exportDate"`
	Templates  map[string]string `json:"templates"`
}

type ImportResult struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Export serializes the saved overrides as indented JSON.
func (e *Engine) Export(ctx context.Context) ([]byte, error) {
	st, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	templates := st.NotificationTemplates
	if templates == nil {
		templates = map[string]string{}
	}
	return json.MarshalIndent(exportDocument{
		Version:    exportVersion,
		ExportDate: e.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Templates:  templates,
	}, "", "  ")
}

// Import merges the templates of an exported document into the saved
// overrides. Every entry is validated on its own; settings are written only
// when at least one template was accepted.
func (e *Engine) Import(ctx context.Context, data []byte) *ImportResult {
	r := &ImportResult{Errors: []string{}, Warnings: []string{}}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		r.Errors = append(r.Errors, "ملف JSON غير صالح")
		return r
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		r.Errors = append(r.Errors, "تنسيق الملف غير صالح")
		return r
	}
	rawTemplates, ok := doc["templates"]
	if !ok || rawTemplates == nil {
		r.Errors = append(r.Errors, "الملف لا يحتوي على قوالب")
		return r
	}
	templates, ok := rawTemplates.(map[string]any)
	if !ok {
		r.Errors = append(r.Errors, "الملف لا يحتوي على قوالب")
		return r
	}
	if v, _ := doc["version"].(string); v != exportVersion {
		r.Errors = append(r.Errors, fmt.Sprintf("إصدار الملف (%v) يختلف عن الإصدار المدعوم (%s)", doc["version"], exportVersion))
	}

	keys := make([]string, 0, len(templates))
	for k := range templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	accepted := map[string]string{}
	for _, key := range keys {
		if _, known := e.defs[Type(key)]; !known {
			r.Warnings = append(r.Warnings, fmt.Sprintf("تم تجاهل نوع قالب غير معروف: %s", key))
			continue
		}
		text, isString := templates[key].(string)
		if !isString {
			r.Warnings = append(r.Warnings, fmt.Sprintf("تم تجاهل القالب %s: القيمة ليست نصاً", key))
			continue
		}
		v := e.Validate(Type(key), text)
		if !v.Valid {
			for _, msg := range v.Errors {
				r.Errors = append(r.Errors, fmt.Sprintf("%s: %s", key, msg))
			}
			continue
		}
		accepted[key] = text
	}

	if len(accepted) == 0 {
		return r
	}
	st, err := e.settings.Get(ctx)
	if err == nil {
		if st.NotificationTemplates == nil {
			st.NotificationTemplates = map[string]string{}
		}
		for k, v := range accepted {
			st.NotificationTemplates[k] = v
		}
		st.UpdatedAt = e.now()
		err = e.settings.Save(ctx, st)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to save imported templates", "error", err)
		r.Errors = append(r.Errors, "فشل حفظ القوالب المستوردة")
		return r
	}
	r.Imported = len(accepted)
	r.Success = true
	return r
}
