package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/pushsubscription"
	"github.com/kazz187/taskdesk/internal/settings"
)

type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

type PushSender struct {
	env    *config.NotificationEnv
	repo   pushsubscription.Repository
	client *http.Client
}

func NewPushSender(env *config.NotificationEnv, repo pushsubscription.Repository, client *http.Client) *PushSender {
	return &PushSender{env: env, repo: repo, client: client}
}

func (s *PushSender) Configured() bool {
	return s.env.VAPIDPrivateKey != "" && s.env.VAPIDPublicKey != ""
}

// Subscriptions lists the browsers registered for any of groups.
func (s *PushSender) Subscriptions(ctx context.Context, groups ...settings.Group) ([]*pushsubscription.Subscription, error) {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = string(g)
	}
	return s.repo.ListByGroup(ctx, names...)
}

// Send pushes payload to one subscription. Subscriptions reported gone are removed.
func (s *PushSender) Send(ctx context.Context, sub *pushsubscription.Subscription, payload *PushPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}
	opts := &webpush.Options{
		VAPIDPublicKey:  s.env.VAPIDPublicKey,
		VAPIDPrivateKey: s.env.VAPIDPrivateKey,
		Subscriber:      s.env.VAPIDContact,
		TTL:             86400,
	}
	if s.client != nil {
		opts.HTTPClient = s.client
	}
	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, opts)
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		slog.InfoContext(ctx, "push subscription expired, removing", "endpoint", sub.Endpoint)
		if err := s.repo.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
			slog.ErrorContext(ctx, "failed to delete expired push subscription", "id", sub.ID, "error", err)
		}
		return fmt.Errorf("push subscription expired")
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
