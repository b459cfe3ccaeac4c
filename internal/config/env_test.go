package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttachmentEnv_PatternList(t *testing.T) {
	e := &AttachmentEnv{Patterns: "*.{jpg,png} ; **/*.pdf;;"}
	assert.Equal(t, []string{"*.{jpg,png}", "**/*.pdf"}, e.PatternList())
	assert.Empty(t, (&AttachmentEnv{}).PatternList())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, (&BaseEnv{LogLevel: "info"}).SlogLevel())
	assert.Equal(t, slog.LevelDebug, (&BaseEnv{LogLevel: "loud"}).SlogLevel())
	assert.Equal(t, slog.LevelError, (&ClientEnv{LogLevel: "ERROR"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (*ClientEnv)(nil).SlogLevel())
}

func TestLoadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TASKDESK_API_KEY", "k")
	t.Setenv("TASKDESK_BACKEND_TYPE", "remote")
	env, err := LoadEnv()
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "k", env.APIKey)
	assert.Equal(t, "remote", env.BackendEnv.Type)
	assert.Equal(t, "3100", env.HTTPPort)
	assert.Equal(t, "on_hold", env.HoldStatusID)
	assert.Equal(t, int64(10<<20), env.AttachmentEnv.MaxSize)
	assert.Equal(t, []string{"*.{jpg,jpeg,png,pdf,docx}"}, env.PatternList())
}
