package apiclient

import (
	"context"
	"sort"
	"time"

	"github.com/kazz187/taskdesk/internal/client"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

const clientsPath = "/api/clients/"

type remoteClient struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Number    string    `json:"number"`
	Type      string    `json:"type,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

func (r *remoteClient) toClient() *client.Client {
	return &client.Client{
		ID:        r.ID,
		Name:      r.Name,
		Number:    r.Number,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.CreatedAt,
	}
}

func newRemoteClient(c *client.Client) *remoteClient {
	return &remoteClient{ID: c.ID, Name: c.Name, Number: c.Number}
}

// ClientRepository implements client.Repository over the REST backend.
type ClientRepository struct {
	client *Client
}

var _ client.Repository = (*ClientRepository)(nil)

func NewClientRepository(c *Client) *ClientRepository {
	return &ClientRepository{client: c}
}

func (r *ClientRepository) Create(ctx context.Context, c *client.Client) error {
	return r.client.Post(ctx, clientsPath, newRemoteClient(c), nil)
}

func (r *ClientRepository) Get(ctx context.Context, id string) (*client.Client, error) {
	var rc remoteClient
	if err := r.client.Get(ctx, clientsPath+id+"/", &rc); err != nil {
		return nil, err
	}
	return rc.toClient(), nil
}

func (r *ClientRepository) all(ctx context.Context) ([]*client.Client, error) {
	items, err := FetchAllPages[remoteClient](ctx, r.client, clientsPath)
	if err != nil {
		return nil, err
	}
	out := make([]*client.Client, 0, len(items))
	for i := range items {
		out = append(out, items[i].toClient())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ClientRepository) FindByNumber(ctx context.Context, number string) (*client.Client, error) {
	all, err := r.all(ctx)
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

func (r *ClientRepository) List(ctx context.Context, limit, offset int) ([]*client.Client, int, error) {
	all, err := r.all(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	if offset > total {
		offset = total
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *ClientRepository) Update(ctx context.Context, c *client.Client) error {
	rc := newRemoteClient(c)
	rc.ID = ""
	return r.client.Put(ctx, clientsPath+c.ID+"/", rc, nil)
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, clientsPath+id+"/")
}
