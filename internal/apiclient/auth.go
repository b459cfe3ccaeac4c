package apiclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kazz187/taskdesk/pkg/cerr"
)

const (
	loginPath   = "/api/auth/login/"
	logoutPath  = "/api/auth/logout/"
	refreshPath = "/api/auth/token/refresh/"
	mePath      = "/api/auth/me/"
)

type loginResponse struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    json.RawMessage `json:"user"`
}

// Login authenticates against the backend and stores the returned tokens.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "username and password are required", nil)
	}
	var resp loginResponse
	in := map[string]string{"username": username, "password": password}
	if err := c.postAnonymous(ctx, loginPath, in, &resp); err != nil {
		return nil, err
	}
	if resp.Access == "" {
		return nil, cerr.NewError(cerr.Unauthenticated, "backend returned no access token", nil)
	}
	s := &Session{AccessToken: resp.Access, RefreshToken: resp.Refresh, User: string(resp.User)}
	if err := c.tokens.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Logout asks the backend to revoke the refresh token and clears the local
// session regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	s, err := c.tokens.Load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "could not read session before logout", "error", err)
	}
	if s != nil && s.RefreshToken != "" {
		if err := c.Post(ctx, logoutPath, map[string]string{"refresh": s.RefreshToken}, nil); err != nil {
			slog.WarnContext(ctx, "remote logout failed", "error", err)
		}
	}
	return c.tokens.Clear(ctx)
}

// Me returns the logged-in user as reported by the backend.
func (c *Client) Me(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.Get(ctx, mePath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// refresh trades the refresh token for a new access token. It reports whether
// a retry is worthwhile.
func (c *Client) refresh(ctx context.Context) bool {
	if c.tokens == nil {
		return false
	}
	s, err := c.tokens.Load(ctx)
	if err != nil || s == nil || s.RefreshToken == "" {
		return false
	}
	var resp loginResponse
	if err := c.postAnonymous(ctx, refreshPath, map[string]string{"refresh": s.RefreshToken}, &resp); err != nil {
		slog.DebugContext(ctx, "token refresh failed", "error", err)
		return false
	}
	if resp.Access == "" {
		return false
	}
	s.AccessToken = resp.Access
	if resp.Refresh != "" {
		s.RefreshToken = resp.Refresh
	}
	if err := c.tokens.Save(ctx, s); err != nil {
		slog.WarnContext(ctx, "failed to store refreshed token", "error", err)
	}
	return true
}

func (c *Client) postAnonymous(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to encode request", err)
	}
	status, data, err := c.send(ctx, http.MethodPost, path, body, false)
	if err != nil {
		return err
	}
	if status >= 400 {
		return responseError(status, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return cerr.NewError(cerr.Internal, "failed to decode response", err)
	}
	return nil
}
