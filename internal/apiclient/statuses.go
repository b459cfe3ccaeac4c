package apiclient

import (
	"context"

	"github.com/kazz187/taskdesk/internal/status"
)

const statusesPath = "/api/statuses/"

// StatusRepository implements status.Repository over the REST backend, whose
// status documents share the local JSON shape.
type StatusRepository struct {
	client *Client
}

var _ status.Repository = (*StatusRepository)(nil)

func NewStatusRepository(c *Client) *StatusRepository {
	return &StatusRepository{client: c}
}

func (r *StatusRepository) Create(ctx context.Context, s *status.Status) error {
	return r.client.Post(ctx, statusesPath, s, nil)
}

func (r *StatusRepository) Get(ctx context.Context, id string) (*status.Status, error) {
	var s status.Status
	if err := r.client.Get(ctx, statusesPath+id+"/", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StatusRepository) List(ctx context.Context) ([]*status.Status, error) {
	return FetchAllPages[*status.Status](ctx, r.client, statusesPath)
}

func (r *StatusRepository) Update(ctx context.Context, s *status.Status) error {
	return r.client.Put(ctx, statusesPath+s.ID+"/", s, nil)
}

func (r *StatusRepository) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, statusesPath+id+"/")
}
