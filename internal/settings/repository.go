package settings

import "context"

type Repository interface {
	// Get returns the stored settings, or Default when none were saved yet.
	Get(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}
