package notification

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/pushsubscription"
	pushrepo "github.com/kazz187/taskdesk/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/settings"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

// browserKeys returns the p256dh and auth keys a browser would register.
func browserKeys(t *testing.T) (string, string) {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()), base64.RawURLEncoding.EncodeToString(auth)
}

func newPushSender(t *testing.T) (*PushSender, pushsubscription.Repository) {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := pushrepo.NewYAMLRepository(s)
	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	env := &config.NotificationEnv{VAPIDPublicKey: pub, VAPIDPrivateKey: priv, VAPIDContact: "mailto:ops@example.com"}
	return NewPushSender(env, repo, &http.Client{Timeout: 5 * time.Second}), repo
}

func subscribe(t *testing.T, repo pushsubscription.Repository, endpoint string, group settings.Group) *pushsubscription.Subscription {
	t.Helper()
	p256dh, auth := browserKeys(t)
	sub := &pushsubscription.Subscription{
		Endpoint: endpoint, P256dhKey: p256dh, AuthKey: auth, Group: string(group), CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Save(context.Background(), sub))
	return sub
}

func TestPushSender_GoneSubscriptionIsRemoved(t *testing.T) {
	ctx := context.Background()
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusGone)
	}))
	t.Cleanup(srv.Close)
	sender, repo := newPushSender(t)
	sub := subscribe(t, repo, srv.URL+"/push/designer-laptop", settings.GroupDesigner)

	err := sender.Send(ctx, sub, &PushPayload{Title: "مشروع جديد", Body: "Wedding set"})
	require.Error(t, err)
	assert.Contains(t, gotAuth, "vapid")

	remaining, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.True(t, cerr.IsCode(repo.DeleteByEndpoint(ctx, sub.Endpoint), cerr.NotFound))
}

func TestPushSender_Delivered(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)
	sender, repo := newPushSender(t)
	require.True(t, sender.Configured())
	sub := subscribe(t, repo, srv.URL+"/push/manager-phone", settings.GroupManagement)
	subscribe(t, repo, srv.URL+"/push/printer", settings.GroupPrintManager)

	require.NoError(t, sender.Send(ctx, sub, &PushPayload{Title: "t", Body: "b", URL: "/tasks/1"}))

	subs, err := sender.Subscriptions(ctx, settings.GroupManagement, settings.GroupDesigner)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, sub.Endpoint, subs[0].Endpoint)
}

func TestPushSender_ServerErrorKeepsSubscription(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	sender, repo := newPushSender(t)
	sub := subscribe(t, repo, srv.URL+"/push/x", settings.GroupDesigner)

	assert.Error(t, sender.Send(ctx, sub, &PushPayload{Title: "t"}))
	remaining, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
