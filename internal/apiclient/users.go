package apiclient

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/kazz187/taskdesk/internal/user"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

const usersPath = "/api/users/"

// remoteUser mirrors the backend's snake_case user document. Ids are numeric
// there and strings here.
type remoteUser struct {
	ID          json.Number `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	IsActive    bool        `json:"is_active"`
	DateJoined  time.Time   `json:"date_joined"`
	Role        string      `json:"role"`
	PhoneNumber string      `json:"phone_number"`
}

func (r *remoteUser) toUser() *user.User {
	return &user.User{
		ID:          r.ID.String(),
		Username:    r.Username,
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Role:        user.Role(r.Role),
		PhoneNumber: r.PhoneNumber,
		IsActive:    r.IsActive,
		DateJoined:  r.DateJoined,
		UpdatedAt:   r.DateJoined,
	}
}

type userWrite struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Role        string `json:"role"`
	PhoneNumber string `json:"phone_number"`
	IsActive    *bool  `json:"is_active,omitempty"`
	Password    string `json:"password,omitempty"`
}

func newUserWrite(u *user.User) *userWrite {
	return &userWrite{
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        string(u.Role),
		PhoneNumber: u.PhoneNumber,
	}
}

// UserRepository implements user.Repository over the REST backend, which
// hashes passwords itself.
type UserRepository struct {
	client *Client
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(c *Client) *UserRepository {
	return &UserRepository{client: c}
}

// Create registers u and adopts the id and join date the backend assigned.
func (r *UserRepository) Create(ctx context.Context, u *user.User, password string) error {
	in := newUserWrite(u)
	in.Password = password
	var out remoteUser
	if err := r.client.Post(ctx, usersPath, in, &out); err != nil {
		return err
	}
	if id := out.ID.String(); id != "" {
		u.ID = id
	}
	if !out.DateJoined.IsZero() {
		u.DateJoined = out.DateJoined
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	var ru remoteUser
	if err := r.client.Get(ctx, usersPath+id+"/", &ru); err != nil {
		return nil, err
	}
	return ru.toUser(), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range all {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "user not found", nil)
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	items, err := FetchAllPages[remoteUser](ctx, r.client, usersPath)
	if err != nil {
		return nil, err
	}
	out := make([]*user.User, 0, len(items))
	for i := range items {
		out = append(out, items[i].toUser())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateJoined.After(out[j].DateJoined) })
	return out, nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User, password string) error {
	in := newUserWrite(u)
	in.Password = password
	active := u.IsActive
	in.IsActive = &active
	return r.client.Patch(ctx, usersPath+u.ID+"/", in, nil)
}
