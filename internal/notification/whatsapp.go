package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// WhatsAppSender delivers text through the CallMeBot WhatsApp gateway. Each
// call is a single GET; failures are not retried.
type WhatsAppSender struct {
	baseURL string
	client  *http.Client
}

func NewWhatsAppSender(baseURL string, client *http.Client) *WhatsAppSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WhatsAppSender{baseURL: baseURL, client: client}
}

func (s *WhatsAppSender) Send(ctx context.Context, phone, apiKey, text string) error {
	if phone == "" || apiKey == "" || text == "" {
		return errors.New("phone, api key and text are required")
	}
	q := url.Values{}
	q.Set("phone", strings.TrimPrefix(phone, "+"))
	q.Set("text", text)
	q.Set("apikey", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
