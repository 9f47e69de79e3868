// Package gateway delivers codes through an HTTP message gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"otp-ceremony/backend/internal/notify"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 512
)

// ErrNotConfigured is returned when the client has no API key.
var ErrNotConfigured = errors.New("gateway: API key not configured")

// Client posts one-time codes to the delivery gateway (route=otp).
type Client struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// New returns a client for the gateway at baseURL.
func New(apiKey, baseURL, sender string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type sendRequest struct {
	Route     string `json:"route"`
	Recipient string `json:"recipient"`
	Variables string `json:"variables"`
	Sender    string `json:"sender,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Notify sends msg.Code to msg.Subject. The code is never included in returned errors.
func (c *Client) Notify(ctx context.Context, msg notify.Message) error {
	if c.APIKey == "" {
		return ErrNotConfigured
	}
	raw, err := json.Marshal(sendRequest{
		Route:     "otp",
		Recipient: msg.Subject,
		Variables: msg.Code,
		Sender:    c.Sender,
		Reference: msg.ID,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)
	if msg.ID != "" {
		req.Header.Set("Idempotency-Key", msg.ID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// StatusError is a non-2xx gateway response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: request failed status=%d body=%s", e.Code, e.Body)
}

// Temporary reports whether a retry may succeed (429 and 5xx).
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
