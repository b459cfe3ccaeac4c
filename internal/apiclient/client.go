package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kazz187/taskdesk/pkg/cerr"
)

// Client talks JSON to the agency REST backend. Requests carry the access
// token from the TokenStore; a 401 triggers one token refresh and a retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenStore
}

func New(baseURL string, httpClient *http.Client, tokens *TokenStore) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

// url resolves path against the base URL. Absolute URLs, such as pagination
// links, are returned as they are.
func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPatch, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends in as the JSON body and decodes the response into out. Either may
// be nil.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return cerr.NewError(cerr.Internal, "failed to encode request", err)
		}
	}

	status, data, err := c.send(ctx, method, path, body, true)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && c.refresh(ctx) {
		if status, data, err = c.send(ctx, method, path, body, true); err != nil {
			return err
		}
	}
	if status >= 400 {
		return responseError(status, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return cerr.NewError(cerr.Internal, fmt.Sprintf("failed to decode response of %s %s", method, path), err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, auth bool) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return 0, nil, cerr.NewError(cerr.InvalidArgument, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.tokens != nil {
		if s, err := c.tokens.Load(ctx); err == nil && s != nil && s.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+s.AccessToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, cerr.NewError(cerr.Canceled, "request canceled", err)
		}
		return 0, nil, cerr.NewError(cerr.Unavailable, "backend unreachable", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, cerr.NewError(cerr.Unavailable, "failed to read response", err)
	}
	slog.DebugContext(ctx, "backend request", "method", method, "path", path, "status", resp.StatusCode)
	return resp.StatusCode, data, nil
}
