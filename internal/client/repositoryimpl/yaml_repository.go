package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskdesk/internal/client"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

const clientsPrefix = "clients"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", clientsPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, c *client.Client) error {
	exists, err := r.storage.Exists(ctx, path(c.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("client", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "client already exists", nil)
	}
	if c.Number != "" {
		if _, err := r.FindByNumber(ctx, c.Number); err == nil {
			return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("client number %s is already used", c.Number), nil)
		} else if !cerr.IsCode(err, cerr.NotFound) {
			return err
		}
	}
	return r.write(ctx, c)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*client.Client, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("client", err)
	}
	var c client.Client
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal client: %w", err))
	}
	return &c, nil
}

func (r *YAMLRepository) FindByNumber(ctx context.Context, number string) (*client.Client, error) {
	all, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.Number == number {
			return c, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "client not found", nil)
}

func (r *YAMLRepository) List(ctx context.Context, limit, offset int) ([]*client.Client, int, error) {
	all, err := r.readAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *YAMLRepository) Update(ctx context.Context, c *client.Client) error {
	exists, err := r.storage.Exists(ctx, path(c.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("client", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "client not found", nil)
	}
	if c.Number != "" {
		other, err := r.FindByNumber(ctx, c.Number)
		switch {
		case err == nil && other.ID != c.ID:
			return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("client number %s is already used", c.Number), nil)
		case err != nil && !cerr.IsCode(err, cerr.NotFound):
			return err
		}
	}
	return r.write(ctx, c)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageDeleteError("client", err)
	}
	return nil
}

func (r *YAMLRepository) readAll(ctx context.Context) ([]*client.Client, error) {
	paths, err := r.storage.List(ctx, clientsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("clients", err)
	}
	var all []*client.Client
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var c client.Client
		if err := yaml.Unmarshal(data, &c); err != nil {
			continue
		}
		all = append(all, &c)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (r *YAMLRepository) write(ctx context.Context, c *client.Client) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal client: %w", err))
	}
	if err := r.storage.Write(ctx, path(c.ID), data); err != nil {
		return cerr.WrapStorageWriteError("client", err)
	}
	return nil
}
