package repositoryimpl

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskdesk/internal/settings"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

const settingsPath = "settings/settings.yaml"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func (r *YAMLRepository) Get(ctx context.Context) (*settings.Settings, error) {
	data, err := r.storage.Read(ctx, settingsPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return settings.Default(), nil
		}
		return nil, cerr.WrapStorageReadError("settings", err)
	}
	s := settings.Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal settings: %w", err))
	}
	if s.NotificationTemplates == nil {
		s.NotificationTemplates = map[string]string{}
	}
	return s, nil
}

func (r *YAMLRepository) Save(ctx context.Context, s *settings.Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal settings: %w", err))
	}
	if err := r.storage.Write(ctx, settingsPath, data); err != nil {
		return cerr.WrapStorageWriteError("settings", err)
	}
	return nil
}
