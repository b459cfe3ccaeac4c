package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskdesk/internal/product"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

const productsPrefix = "products"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", productsPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, p *product.Product) error {
	exists, err := r.storage.Exists(ctx, path(p.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("product", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "product already exists", nil)
	}
	if err := r.checkUnique(ctx, p); err != nil {
		return err
	}
	return r.write(ctx, p)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("product", err)
	}
	var p product.Product
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal product: %w", err))
	}
	return &p, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*product.Product, error) {
	paths, err := r.storage.List(ctx, productsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("products", err)
	}
	var all []*product.Product
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var pr product.Product
		if err := yaml.Unmarshal(data, &pr); err != nil {
			continue
		}
		all = append(all, &pr)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return !all[i].IsVIP && all[j].IsVIP
	})
	return all, nil
}

func (r *YAMLRepository) Update(ctx context.Context, p *product.Product) error {
	exists, err := r.storage.Exists(ctx, path(p.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("product", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "product not found", nil)
	}
	if err := r.checkUnique(ctx, p); err != nil {
		return err
	}
	return r.write(ctx, p)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageDeleteError("product", err)
	}
	return nil
}

func (r *YAMLRepository) checkUnique(ctx context.Context, p *product.Product) error {
	all, err := r.List(ctx)
	if err != nil {
		return err
	}
	for _, o := range all {
		if o.ID != p.ID && o.SameKey(p) {
			kind := "product"
			if p.IsVIP {
				kind = "VIP product"
			}
			return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("%s %q already exists", kind, p.Name), nil)
		}
	}
	return nil
}

func (r *YAMLRepository) write(ctx context.Context, p *product.Product) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal product: %w", err))
	}
	if err := r.storage.Write(ctx, path(p.ID), data); err != nil {
		return cerr.WrapStorageWriteError("product", err)
	}
	return nil
}
