package apiclient

import (
	"context"
	"sort"
	"time"

	"github.com/kazz187/taskdesk/internal/product"
)

const productsPath = "/api/products/"

type remoteProduct struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	IsVIP     bool      `json:"isVip"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

func (r *remoteProduct) toProduct() *product.Product {
	return &product.Product{ID: r.ID, Name: r.Name, IsVIP: r.IsVIP, CreatedAt: r.CreatedAt, UpdatedAt: r.CreatedAt}
}

// ProductRepository implements product.Repository over the REST backend. The
// backend enforces the (name, is_vip) constraint; its rejection surfaces as
// AlreadyExists.
type ProductRepository struct {
	client *Client
}

var _ product.Repository = (*ProductRepository)(nil)

func NewProductRepository(c *Client) *ProductRepository {
	return &ProductRepository{client: c}
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	var out remoteProduct
	if err := r.client.Post(ctx, productsPath, &remoteProduct{Name: p.Name, IsVIP: p.IsVIP}, &out); err != nil {
		return err
	}
	if out.ID != "" {
		p.ID = out.ID
	}
	if !out.CreatedAt.IsZero() {
		p.CreatedAt = out.CreatedAt
	}
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	var rp remoteProduct
	if err := r.client.Get(ctx, productsPath+id+"/", &rp); err != nil {
		return nil, err
	}
	return rp.toProduct(), nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*product.Product, error) {
	items, err := FetchAllPages[remoteProduct](ctx, r.client, productsPath)
	if err != nil {
		return nil, err
	}
	out := make([]*product.Product, 0, len(items))
	for i := range items {
		out = append(out, items[i].toProduct())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	return r.client.Put(ctx, productsPath+p.ID+"/", &remoteProduct{Name: p.Name, IsVIP: p.IsVIP}, nil)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, productsPath+id+"/")
}
