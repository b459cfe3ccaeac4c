package apiclient

import (
	"context"

	"github.com/kazz187/taskdesk/internal/settings"
)

// The backend keeps settings as a singleton resource with id 1.
const settingsPath = "/api/settings/1/"

type SettingsRepository struct {
	client *Client
}

var _ settings.Repository = (*SettingsRepository)(nil)

func NewSettingsRepository(c *Client) *SettingsRepository {
	return &SettingsRepository{client: c}
}

func (r *SettingsRepository) Get(ctx context.Context) (*settings.Settings, error) {
	s := settings.Default()
	if err := r.client.Get(ctx, settingsPath, s); err != nil {
		return nil, err
	}
	if s.NotificationTemplates == nil {
		s.NotificationTemplates = map[string]string{}
	}
	return s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s *settings.Settings) error {
	return r.client.Put(ctx, settingsPath, s, nil)
}
