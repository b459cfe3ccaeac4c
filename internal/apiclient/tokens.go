package apiclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

const sessionPath = "session.yaml"

// Session is what a login leaves behind. User holds the backend's user object
// as serialized JSON.
type Session struct {
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token"`
	User         string    `yaml:"user,omitempty"`
	SavedAt      time.Time `yaml:"saved_at"`
}

// TokenStore keeps the Session as one YAML document in a Storage.
type TokenStore struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewTokenStore(s storage.Storage) *TokenStore {
	return &TokenStore{storage: s}
}

// Load returns the stored session, or nil when nobody is logged in.
func (ts *TokenStore) Load(ctx context.Context) (*Session, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	data, err := ts.storage.Read(ctx, sessionPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, cerr.WrapStorageReadError("session", err)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, cerr.NewError(cerr.DataLoss, "stored session is corrupt", err)
	}
	return &s, nil
}

func (ts *TokenStore) Save(ctx context.Context, s *Session) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	s.SavedAt = time.Now()
	data, err := yaml.Marshal(s)
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to encode session", err)
	}
	if err := ts.storage.Write(ctx, sessionPath, data); err != nil {
		return cerr.WrapStorageWriteError("session", err)
	}
	return nil
}

// Clear forgets the session. Clearing an empty store is not an error.
func (ts *TokenStore) Clear(ctx context.Context) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := ts.storage.Delete(ctx, sessionPath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return cerr.WrapStorageDeleteError("session", err)
	}
	return nil
}
