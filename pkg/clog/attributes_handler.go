package clog

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// AttributesHandler adds the attributes collected on the request context to
// every record logged with that context, so a dispatcher warning carries the
// request_id, task_id and user_id of the call that caused it. Keys the record
// or the logger already carry win over the context. The error stack is only
// attached to error records.
type AttributesHandler struct {
	handler slog.Handler
	bound   map[string]bool
	grouped bool
}

func NewAttributesHandler(handler slog.Handler) *AttributesHandler {
	return &AttributesHandler{handler: handler}
}

func (h *AttributesHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *AttributesHandler) Handle(ctx context.Context, record slog.Record) error {
	attrs := GetAttributes(ctx)
	if len(attrs) == 0 {
		return h.handler.Handle(ctx, record)
	}
	present := maps.Clone(h.bound)
	if present == nil {
		present = make(map[string]bool, record.NumAttrs())
	}
	record.Attrs(func(a slog.Attr) bool {
		present[a.Key] = true
		return true
	})
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		if present[k] || (k == StackAttributeKey && record.Level < slog.LevelError) {
			continue
		}
		record.AddAttrs(toAttr(k, attrs[k]))
	}
	return h.handler.Handle(ctx, record)
}

// WithAttrs remembers top-level keys so the context does not repeat them.
// Inside a group the keys no longer collide and are not tracked.
func (h *AttributesHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &AttributesHandler{handler: h.handler.WithAttrs(attrs), bound: h.bound, grouped: h.grouped}
	if !h.grouped {
		next.bound = maps.Clone(h.bound)
		if next.bound == nil {
			next.bound = make(map[string]bool, len(attrs))
		}
		for _, a := range attrs {
			next.bound[a.Key] = true
		}
	}
	return next
}

func (h *AttributesHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &AttributesHandler{handler: h.handler.WithGroup(name), grouped: true}
}

// toAttr turns nested attribute maps into groups with sorted keys.
func toAttr(key string, v any) slog.Attr {
	m, ok := v.(map[string]any)
	if !ok {
		return slog.Any(key, v)
	}
	sub := make([]any, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		sub = append(sub, toAttr(k, m[k]))
	}
	return slog.Group(key, sub...)
}
