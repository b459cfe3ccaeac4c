package client

import "context"

type Repository interface {
	Create(ctx context.Context, c *Client) error
	Get(ctx context.Context, id string) (*Client, error)
	FindByNumber(ctx context.Context, number string) (*Client, error)
	List(ctx context.Context, limit, offset int) ([]*Client, int, error)
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, id string) error
}
