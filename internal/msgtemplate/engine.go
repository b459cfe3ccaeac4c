package msgtemplate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kazz187/taskdesk/internal/settings"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/panicerr"
)

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// Engine resolves, renders and validates notification templates. User
// overrides live in the settings document, keyed by template type.
type Engine struct {
	settings settings.Repository
	defs     map[Type]*Definition
	order    []Type
	now      func() time.Time
}

type Option func(*Engine)

// WithDefinitions replaces the built-in definitions.
func WithDefinitions(defs ...*Definition) Option {
	return func(e *Engine) { e.setDefinitions(defs) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(repo settings.Repository, opts ...Option) *Engine {
	e := &Engine{
		settings: repo,
		now:      time.Now,
	}
	e.setDefinitions(DefaultDefinitions())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) setDefinitions(defs []*Definition) {
	e.defs = make(map[Type]*Definition, len(defs))
	e.order = e.order[:0]
	for _, d := range defs {
		e.defs[d.Type] = d
		e.order = append(e.order, d.Type)
	}
}

func (e *Engine) Definitions() []*Definition {
	out := make([]*Definition, 0, len(e.order))
	for _, t := range e.order {
		out = append(out, e.defs[t])
	}
	return out
}

func (e *Engine) Definition(typ Type) (*Definition, bool) {
	d, ok := e.defs[typ]
	return d, ok
}

func (e *Engine) definition(typ Type) (*Definition, error) {
	d, ok := e.defs[typ]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("unknown template type %s", typ), nil)
	}
	return d, nil
}

// Get returns the saved override for typ, or its default. Overrides are never
// merged with the default.
func (e *Engine) Get(ctx context.Context, typ Type) (string, error) {
	text, _, err := e.resolve(ctx, typ)
	return text, err
}

func (e *Engine) resolve(ctx context.Context, typ Type) (string, bool, error) {
	d, err := e.definition(typ)
	if err != nil {
		return "", false, err
	}
	st, err := e.settings.Get(ctx)
	if err != nil {
		return "", false, err
	}
	if custom, ok := st.NotificationTemplates[string(typ)]; ok && custom != "" {
		return custom, true, nil
	}
	return d.DefaultTemplate, false, nil
}

// IsCustom reports whether typ currently resolves to a saved override.
func (e *Engine) IsCustom(ctx context.Context, typ Type) (bool, error) {
	_, custom, err := e.resolve(ctx, typ)
	return custom, err
}

// Render substitutes data into the template for typ. If resolving or
// rendering the effective template fails, the default template is rendered
// instead, and if that fails too the default text is returned as is.
func (e *Engine) Render(ctx context.Context, typ Type, data map[string]any) string {
	out, err := panicerr.Value(func() (string, error) {
		text, err := e.Get(ctx, typ)
		if err != nil {
			return "", err
		}
		return substitute(text, data), nil
	})
	if err == nil {
		return out
	}
	slog.WarnContext(ctx, "rendering default template", "template_type", typ, "error", err)

	d, ok := e.defs[typ]
	if !ok {
		return ""
	}
	out, err = panicerr.Value(func() (string, error) {
		return substitute(d.DefaultTemplate, data), nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "default template failed to render", "template_type", typ, "error", err)
		return d.DefaultTemplate
	}
	return out
}

func substitute(text string, data map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		return stringify(data[m[1:len(m)-1]])
	})
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Preview renders the effective template with every variable's example value.
func (e *Engine) Preview(ctx context.Context, typ Type) (string, error) {
	d, err := e.definition(typ)
	if err != nil {
		return "", err
	}
	return e.Render(ctx, typ, d.Examples()), nil
}

// Save validates text and stores it as the override for typ.
func (e *Engine) Save(ctx context.Context, typ Type, text string) (*ValidationResult, error) {
	result := e.Validate(typ, text)
	if !result.Valid {
		verr := cerr.NewError(cerr.InvalidArgument, "template is invalid", nil)
		for _, msg := range result.Errors {
			verr.AddViolation("template."+string(typ), msg)
		}
		return result, verr
	}
	st, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if st.NotificationTemplates == nil {
		st.NotificationTemplates = map[string]string{}
	}
	st.NotificationTemplates[string(typ)] = text
	st.UpdatedAt = e.now()
	if err := e.settings.Save(ctx, st); err != nil {
		return nil, err
	}
	return result, nil
}

// Reset drops the override for typ so the default applies again.
func (e *Engine) Reset(ctx context.Context, typ Type) error {
	if _, err := e.definition(typ); err != nil {
		return err
	}
	st, err := e.settings.Get(ctx)
	if err != nil {
		return err
	}
	if _, ok := st.NotificationTemplates[string(typ)]; !ok {
		return nil
	}
	delete(st.NotificationTemplates, string(typ))
	st.UpdatedAt = e.now()
	return e.settings.Save(ctx, st)
}

// Diff is a unified diff from the default template to the effective one.
// It is empty when no override is saved.
func (e *Engine) Diff(ctx context.Context, typ Type) (string, error) {
	d, err := e.definition(typ)
	if err != nil {
		return "", err
	}
	text, custom, err := e.resolve(ctx, typ)
	if err != nil || !custom {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(d.DefaultTemplate + "\n"),
		B:        difflib.SplitLines(text + "\n"),
		FromFile: string(typ) + " (default)",
		ToFile:   string(typ) + " (custom)",
		Context:  2,
	})
}
