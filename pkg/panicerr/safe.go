// Package panicerr turns panics raised inside notification sends and template
// rendering into ordinary errors.
package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Value runs fn and returns its result. A panic inside fn is returned as an
// error together with the zero value of T.
func Value[T any](fn func() (T, error)) (T, error) {
	var (
		catcher panics.Catcher
		out     T
		err     error
	)
	catcher.Try(func() {
		out, err = fn()
	})
	if r := catcher.Recovered(); r != nil {
		var zero T
		return zero, r.AsError()
	}
	return out, err
}

func Safe(fn func() error) func() error {
	return func() error {
		_, err := Value(func() (struct{}, error) {
			return struct{}{}, fn()
		})
		return err
	}
}

// SafeContext is Safe for functions taking a context, such as a single
// notification send.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Safe(func() error { return fn(ctx) })()
	}
}
