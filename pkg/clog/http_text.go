package clog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
)

// columnKeys are printed inline, in this order, before the message. Request
// logs fill the first group and notification logs the second.
var columnKeys = []string{"method", "path", "status", "template_type", "channel", "recipient", "request_id"}

// HTTPTextHandler is the console handler of the local server and the CLI.
type HTTPTextHandler struct {
	cfg    TextHandlerConfig
	groups []string
	attrs  []slog.Attr
	w      io.Writer
}

func (h *HTTPTextHandler) clone() *HTTPTextHandler {
	nh := *h
	nh.groups = make([]string, len(h.groups))
	copy(nh.groups, h.groups)
	nh.attrs = make([]slog.Attr, len(h.attrs))
	copy(nh.attrs, h.attrs)
	return &nh
}

func (h *HTTPTextHandler) Enabled(ctx context.Context, l slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.cfg.Level != nil {
		minLevel = h.cfg.Level.Level()
	}
	return l >= minLevel
}

func (h *HTTPTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

type TextHandlerConfig struct {
	Color bool
	Level *slog.Level
}

type TextHandlerOption func(*TextHandlerConfig)

func WithColor(c bool) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Color = c
	}
}

func WithLevel(level slog.Level) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Level = &level
	}
}

func NewHTTPTextHandler(w io.Writer, opts ...TextHandlerOption) *HTTPTextHandler {
	cfg := TextHandlerConfig{
		Color: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HTTPTextHandler{
		cfg: cfg,
		w:   w,
	}
}

func (h *HTTPTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()
	nh.attrs = append(nh.attrs, attrs...)
	return nh
}

func (h *HTTPTextHandler) Handle(_ context.Context, record slog.Record) error {
	kv := map[string]slog.Value{}
	for _, attr := range h.attrs {
		kv[attr.Key] = attr.Value
	}
	prefix := strings.Join(h.groups, ".")
	record.Attrs(func(attr slog.Attr) bool {
		key := attr.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		kv[key] = attr.Value
		return true
	})

	if err := h.printf(color.New(), "%s ", record.Time.Format(time.RFC3339)); err != nil {
		return err
	}
	if err := h.printf(levelColor(record.Level), "%s ", record.Level); err != nil {
		return err
	}
	for _, key := range columnKeys {
		v, ok := kv[key]
		if !ok {
			continue
		}
		delete(kv, key)
		c := color.New()
		if key == "status" && v.Kind() == slog.KindInt64 {
			c = levelColor(HTTPStatusToLevel(int(v.Int64())).Slog())
		}
		if err := h.printf(c, "%s ", v); err != nil {
			return err
		}
	}
	if err := h.printf(color.New(color.FgGreen), "%s", record.Message); err != nil {
		return err
	}
	if e, ok := kv[ErrorAttributeKey]; ok {
		delete(kv, ErrorAttributeKey)
		if err := h.printf(color.New(color.FgRed), " %s", e); err != nil {
			return err
		}
	}
	if err := h.printf(color.New(), "\n"); err != nil {
		return err
	}
	for _, k := range slices.Sorted(maps.Keys(kv)) {
		if err := h.printf(color.New(), "    %s=%s\n", k, kv[k]); err != nil {
			return err
		}
	}
	return nil
}

func levelColor(l slog.Level) *color.Color {
	switch {
	case l >= slog.LevelError:
		return color.New(color.FgRed)
	case l >= slog.LevelWarn:
		return color.New(color.FgYellow)
	case l >= slog.LevelInfo:
		return color.New(color.FgBlue)
	}
	return color.New(color.FgCyan)
}

func (h *HTTPTextHandler) printf(c *color.Color, format string, args ...any) error {
	if h.cfg.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	if _, err := c.Fprintf(h.w, format, args...); err != nil {
		return fmt.Errorf("can't write log record: %w", err)
	}
	return nil
}
