package repositoryimpl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/client"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

func TestYAMLRepository(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := NewYAMLRepository(s)

	require.NoError(t, repo.Create(ctx, &client.Client{ID: "c2", Name: "Nile Press", Number: "C-7"}))
	require.NoError(t, repo.Create(ctx, &client.Client{ID: "c1", Name: "Alex Print", Number: "C-1"}))
	require.NoError(t, repo.Create(ctx, &client.Client{ID: "c3", Name: "Walk-in"}))

	err = repo.Create(ctx, &client.Client{ID: "c4", Name: "Copycat", Number: "C-7"})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))
	err = repo.Create(ctx, &client.Client{ID: "c1", Name: "Again"})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))

	found, err := repo.FindByNumber(ctx, "C-7")
	require.NoError(t, err)
	assert.Equal(t, "c2", found.ID)
	_, err = repo.FindByNumber(ctx, "C-404")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	page, total, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "Alex Print", page[0].Name)
	assert.Equal(t, "Nile Press", page[1].Name)

	page, total, err = repo.List(ctx, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, page)

	// Updating may keep its own number but not take another client's.
	found.Phone = "+201000000001"
	require.NoError(t, repo.Update(ctx, found))
	found.Number = "C-1"
	assert.True(t, cerr.IsCode(repo.Update(ctx, found), cerr.AlreadyExists))
	assert.True(t, cerr.IsCode(repo.Update(ctx, &client.Client{ID: "ghost", Name: "x"}), cerr.NotFound))

	got, err := repo.Get(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "C-7", got.Number)
	assert.Equal(t, "+201000000001", got.Phone)

	require.NoError(t, repo.Delete(ctx, "c3"))
	assert.True(t, cerr.IsCode(repo.Delete(ctx, "c3"), cerr.NotFound))
}
