package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskdesk/internal/status"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

const statusesPrefix = "statuses"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", statusesPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, s *status.Status) error {
	exists, err := r.storage.Exists(ctx, path(s.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("status", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "status already exists", nil)
	}
	return r.write(ctx, s)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*status.Status, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("status", err)
	}
	var s status.Status
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal status: %w", err))
	}
	return &s, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*status.Status, error) {
	paths, err := r.storage.List(ctx, statusesPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("statuses", err)
	}
	sort.Strings(paths)

	var all []*status.Status
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var s status.Status
		if err := yaml.Unmarshal(data, &s); err != nil {
			continue
		}
		all = append(all, &s)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].OrderIndex < all[j].OrderIndex })
	return all, nil
}

func (r *YAMLRepository) Update(ctx context.Context, s *status.Status) error {
	exists, err := r.storage.Exists(ctx, path(s.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("status", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "status not found", nil)
	}
	return r.write(ctx, s)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageDeleteError("status", err)
	}
	return nil
}

func (r *YAMLRepository) write(ctx context.Context, s *status.Status) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal status: %w", err))
	}
	if err := r.storage.Write(ctx, path(s.ID), data); err != nil {
		return cerr.WrapStorageWriteError("status", err)
	}
	return nil
}
