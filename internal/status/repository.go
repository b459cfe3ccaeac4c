package status

import "context"

type Repository interface {
	Create(ctx context.Context, s *Status) error
	Get(ctx context.Context, id string) (*Status, error)
	List(ctx context.Context) ([]*Status, error)
	Update(ctx context.Context, s *Status) error
	Delete(ctx context.Context, id string) error
}
