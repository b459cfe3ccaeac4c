package pushsubscription

import "context"

type Repository interface {
	// Save stores s under IDFor(s.Endpoint). Re-registering keeps the original
	// CreatedAt and may move the browser to another group.
	Save(ctx context.Context, s *Subscription) error
	List(ctx context.Context) ([]*Subscription, error)
	// ListByGroup returns the subscriptions of any of groups.
	ListByGroup(ctx context.Context, groups ...string) ([]*Subscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}
