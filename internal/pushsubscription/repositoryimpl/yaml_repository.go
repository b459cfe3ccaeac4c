package repositoryimpl

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskdesk/internal/pushsubscription"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

const pushSubscriptionsPrefix = "push_subscriptions"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", pushSubscriptionsPrefix, id)
}

func (r *YAMLRepository) read(ctx context.Context, p string) (*pushsubscription.Subscription, error) {
	data, err := r.storage.Read(ctx, p)
	if err != nil {
		return nil, cerr.WrapStorageReadError("push_subscription", err)
	}
	var s pushsubscription.Subscription
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal %s: %w", p, err))
	}
	return &s, nil
}

func (r *YAMLRepository) Save(ctx context.Context, s *pushsubscription.Subscription) error {
	s.ID = pushsubscription.IDFor(s.Endpoint)
	existing, err := r.read(ctx, path(s.ID))
	switch {
	case err == nil:
		s.CreatedAt = existing.CreatedAt
	case !cerr.IsCode(err, cerr.NotFound):
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal push subscription: %w", err))
	}
	if err := r.storage.Write(ctx, path(s.ID), data); err != nil {
		return cerr.WrapStorageWriteError("push_subscription", err)
	}
	return nil
}

// List skips unreadable documents so that one corrupt file does not silence
// every browser.
func (r *YAMLRepository) List(ctx context.Context) ([]*pushsubscription.Subscription, error) {
	paths, err := r.storage.List(ctx, pushSubscriptionsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("push_subscriptions", err)
	}
	slices.Sort(paths)

	var all []*pushsubscription.Subscription
	for _, p := range paths {
		s, err := r.read(ctx, p)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable push subscription", "path", p, "error", err)
			continue
		}
		all = append(all, s)
	}
	return all, nil
}

func (r *YAMLRepository) ListByGroup(ctx context.Context, groups ...string) ([]*pushsubscription.Subscription, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(s *pushsubscription.Subscription) bool {
		return !slices.Contains(groups, s.Group)
	}), nil
}

func (r *YAMLRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	if err := r.storage.Delete(ctx, path(pushsubscription.IDFor(endpoint))); err != nil {
		return cerr.WrapStorageDeleteError("push_subscription", err)
	}
	return nil
}
