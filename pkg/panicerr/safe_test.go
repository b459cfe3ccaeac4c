package panicerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	out, err := Value(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	boom := errors.New("boom")
	_, err = Value(func() (int, error) { return 1, boom })
	assert.ErrorIs(t, err, boom)

	out, err = Value(func() (string, error) { panic("template exploded") })
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, err.Error(), "template exploded")
}

func TestSafeContext(t *testing.T) {
	ctx := context.Background()
	err := SafeContext(func(context.Context) error { return nil })(ctx)
	assert.NoError(t, err)

	err = SafeContext(func(context.Context) error {
		var m map[string]int
		m["x"] = 1
		return nil
	})(ctx)
	assert.Error(t, err)
}
