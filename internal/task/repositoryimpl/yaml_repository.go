package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

const tasksPrefix = "tasks"

type YAMLRepository struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", tasksPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, t *task.Task) error {
	exists, err := r.storage.Exists(ctx, path(t.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}
	return r.write(ctx, t)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	var t task.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal task: %w", err))
	}
	return &t, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*task.Task, error) {
	paths, err := r.storage.List(ctx, tasksPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}
	sort.Strings(paths)

	var all []*task.Task
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var t task.Task
		if err := yaml.Unmarshal(data, &t); err != nil {
			continue
		}
		all = append(all, &t)
	}
	return all, nil
}

func (r *YAMLRepository) Update(ctx context.Context, t *task.Task) error {
	exists, err := r.storage.Exists(ctx, path(t.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return r.write(ctx, t)
}

func (r *YAMLRepository) UpdateStatus(ctx context.Context, id, statusID string) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	t.ActivityLog = append(t.ActivityLog, &task.ActivityEntry{
		ID:          ulid.Make().String(),
		Timestamp:   now,
		Type:        task.ActivityStatusChange,
		Description: fmt.Sprintf("status changed from %s to %s", t.StatusID, statusID),
		Details:     map[string]string{"from": t.StatusID, "to": statusID},
	})
	t.StatusID = statusID
	t.UpdatedAt = now
	if err := r.write(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageDeleteError("task", err)
	}
	return nil
}

func (r *YAMLRepository) write(ctx context.Context, t *task.Task) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	if err := r.storage.Write(ctx, path(t.ID), data); err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}
