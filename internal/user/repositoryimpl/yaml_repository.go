package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskdesk/internal/user"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

const usersPrefix = "users"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", usersPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, u *user.User, password string) error {
	exists, err := r.storage.Exists(ctx, path(u.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("user", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "user already exists", nil)
	}
	if err := r.checkUsername(ctx, u); err != nil {
		return err
	}
	if err := setPassword(u, password); err != nil {
		return err
	}
	return r.write(ctx, u)
}

func setPassword(u *user.User, password string) error {
	if password == "" {
		return nil
	}
	if err := u.SetPassword(password); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to hash password: %w", err))
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*user.User, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("user", err)
	}
	var u user.User
	if err := yaml.Unmarshal(data, &u); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal user: %w", err))
	}
	return &u, nil
}

// FindByUsername matches usernames case-insensitively.
func (r *YAMLRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
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

func (r *YAMLRepository) List(ctx context.Context) ([]*user.User, error) {
	paths, err := r.storage.List(ctx, usersPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("users", err)
	}
	var all []*user.User
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var u user.User
		if err := yaml.Unmarshal(data, &u); err != nil {
			continue
		}
		all = append(all, &u)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].DateJoined.After(all[j].DateJoined) })
	return all, nil
}

func (r *YAMLRepository) Update(ctx context.Context, u *user.User, password string) error {
	exists, err := r.storage.Exists(ctx, path(u.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("user", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "user not found", nil)
	}
	if err := r.checkUsername(ctx, u); err != nil {
		return err
	}
	if err := setPassword(u, password); err != nil {
		return err
	}
	return r.write(ctx, u)
}

func (r *YAMLRepository) checkUsername(ctx context.Context, u *user.User) error {
	other, err := r.FindByUsername(ctx, u.Username)
	switch {
	case err == nil && other.ID != u.ID:
		return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("username %s already exists", u.Username), nil)
	case err != nil && !cerr.IsCode(err, cerr.NotFound):
		return err
	}
	return nil
}

func (r *YAMLRepository) write(ctx context.Context, u *user.User) error {
	data, err := yaml.Marshal(u)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal user: %w", err))
	}
	if err := r.storage.Write(ctx, path(u.ID), data); err != nil {
		return cerr.WrapStorageWriteError("user", err)
	}
	return nil
}
