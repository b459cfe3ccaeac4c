package product

import "context"

type Repository interface {
	// Create and Update return AlreadyExists when another product has the
	// same name and VIP flag.
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	// List returns products ordered by name.
	List(ctx context.Context) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
