package status_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/status"
	"github.com/kazz187/taskdesk/internal/status/repositoryimpl"
	"github.com/kazz187/taskdesk/pkg/storage"
)

func newRepo(t *testing.T) status.Repository {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return repositoryimpl.NewYAMLRepository(s)
}

func TestEnsureDefaults(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(t, status.EnsureDefaults(ctx, repo))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(status.DefaultStatuses()))
	assert.Equal(t, status.IDPending, all[0].ID)

	// A second call must not duplicate or fail.
	require.NoError(t, status.EnsureDefaults(ctx, repo))
	all, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(status.DefaultStatuses()))
}

func TestApplyFile(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, status.EnsureDefaults(ctx, repo))

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
statuses:
  - id: in_design
    label: Designing
    order_index: 1
    allowed_next_statuses: [design_completed]
  - id: proofing
    label: Proofing
    order_index: 4
`), 0o644))

	n, err := status.ApplyFile(ctx, repo, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := repo.Get(ctx, status.IDInDesign)
	require.NoError(t, err)
	assert.Equal(t, "Designing", got.Label)
	assert.Equal(t, []string{status.IDDesignCompleted}, got.AllowedNextStatuses)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = repo.Get(ctx, "proofing")
	require.NoError(t, err)

	catalog, err := status.LoadCatalog(ctx, repo)
	require.NoError(t, err)
	assert.True(t, catalog.CanTransition(status.IDInDesign, status.IDDesignCompleted))
	assert.False(t, catalog.CanTransition(status.IDInDesign, status.IDHasComments))
}

func TestApplyFile_Invalid(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	_, err := status.ApplyFile(ctx, repo, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("statuses: [\n"), 0o644))
	_, err = status.ApplyFile(ctx, repo, path)
	assert.Error(t, err)
}

func TestWatchFile_ReappliesOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := newRepo(t)
	require.NoError(t, status.EnsureDefaults(ctx, repo))

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("statuses:\n  - id: in_design\n    label: Designing\n"), 0o644))

	done := make(chan error, 1)
	go func() { done <- status.WatchFile(ctx, repo, path) }()

	// The watcher registers asynchronously, so the file is rewritten until
	// a reload lands. The tick stays above the debounce interval.
	edited := []byte("statuses:\n  - id: in_design\n    label: Layout\n  - id: proofing\n    label: Proofing\n    order_index: 4\n")
	require.Eventually(t, func() bool {
		got, err := repo.Get(ctx, status.IDInDesign)
		if err == nil && got.Label == "Layout" {
			return true
		}
		require.NoError(t, os.WriteFile(path, edited, 0o644))
		return false
	}, 5*time.Second, 300*time.Millisecond)

	proofing, err := repo.Get(ctx, "proofing")
	require.NoError(t, err)
	assert.Equal(t, 4, proofing.OrderIndex)

	// Edits to other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("statuses: ["), 0o644))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WatchFile did not stop after cancel")
	}
}
