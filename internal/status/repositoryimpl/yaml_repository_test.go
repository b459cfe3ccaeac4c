package repositoryimpl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/status"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

func TestYAMLRepository(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := NewYAMLRepository(s)

	require.NoError(t, repo.Create(ctx, &status.Status{ID: "proofing", Label: "مراجعة", OrderIndex: 2}))
	require.NoError(t, repo.Create(ctx, &status.Status{ID: "draft", Label: "مسودة", OrderIndex: 1, IsDefault: true,
		AllowedNextStatuses: []string{"proofing"}}))
	err = repo.Create(ctx, &status.Status{ID: "draft"})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "draft", all[0].ID)
	assert.Equal(t, []string{"proofing"}, all[0].AllowedNextStatuses)

	draft, err := repo.Get(ctx, "draft")
	require.NoError(t, err)
	draft.Label = "Draft"
	require.NoError(t, repo.Update(ctx, draft))
	got, err := repo.Get(ctx, "draft")
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Label)
	assert.True(t, got.IsDefault)

	err = repo.Update(ctx, &status.Status{ID: "ghost"})
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	require.NoError(t, repo.Delete(ctx, "proofing"))
	_, err = repo.Get(ctx, "proofing")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
	assert.True(t, cerr.IsCode(repo.Delete(ctx, "proofing"), cerr.NotFound))
}

func TestYAMLRepository_SkipsUnreadableDocuments(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := NewYAMLRepository(s)

	require.NoError(t, repo.Create(ctx, &status.Status{ID: "draft", OrderIndex: 1}))
	require.NoError(t, s.Write(ctx, "statuses/broken.yaml", []byte("id: [unterminated")))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = repo.Get(ctx, "broken")
	assert.True(t, cerr.IsCode(err, cerr.Internal))
}
