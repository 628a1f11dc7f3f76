package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"storefront/internal/domain"
)

// TokenSource issues the one-time authorization token for a shopper.
type TokenSource interface {
	Token(ctx context.Context, id string) (string, error)
}

// Webhook delivers an order payload to the external order-intake endpoint.
type Webhook interface {
	Submit(ctx context.Context, token, idempotencyKey string, payload Payload) error
}

type httpTokenSource struct {
	client  *http.Client
	baseURL string
}

// NewTokenSource calls GET baseURL?id=<id> and expects {"token": "..."}.
func NewTokenSource(client *http.Client, baseURL string) TokenSource {
	return &httpTokenSource{client: client, baseURL: baseURL}
}

// Token fails with ErrUnauthorizedHandoff on any non-200 answer or missing token.
func (s *httpTokenSource) Token(ctx context.Context, id string) (string, error) {
	endpoint, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse token url: %w", err)
	}
	q := endpoint.Query()
	q.Set("id", id)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthorizedHandoff, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: token service returned %d", domain.ErrUnauthorizedHandoff, resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Token == "" {
		return "", fmt.Errorf("%w: token missing from response", domain.ErrUnauthorizedHandoff)
	}

	return body.Token, nil
}

type httpWebhook struct {
	client *http.Client
	url    string
}

// NewWebhook posts payloads to url with bearer authentication.
func NewWebhook(client *http.Client, url string) Webhook {
	return &httpWebhook{client: client, url: url}
}

// Submit treats any 2xx as acceptance and everything else as ErrHandoffFailed.
func (w *httpWebhook) Submit(ctx context.Context, token, idempotencyKey string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHandoffFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: webhook returned %d", domain.ErrHandoffFailed, resp.StatusCode)
	}
	return nil
}
