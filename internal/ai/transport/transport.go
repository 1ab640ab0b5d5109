// Package transport holds the HTTP plumbing and error taxonomy shared by the
// remote AI providers.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors for provider failures. Every error returned by a provider
// wraps exactly one of these.
var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
	ErrRateLimited         = errors.New("ai provider rate limited")
	ErrUnauthorized        = errors.New("ai provider rejected credentials")
)

const maxErrorBody = 256

// Client posts JSON requests to a provider's HTTP API.
type Client struct {
	baseURL string
	headers map[string]string
	client  *http.Client
}

// NewClient creates a Client. A zero timeout leaves deadlines to the request context.
func NewClient(baseURL string, timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// PostJSON sends in as a JSON body to baseURL+path and decodes a 200 reply into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return ClassifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return StatusError(resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrInvalidResponse, err)
	}
	return nil
}

// StatusError maps a non-200 HTTP status to a sentinel error.
func StatusError(code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var sentinel error
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case code == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		sentinel = ErrInferenceTimeout
	case code >= 500:
		sentinel = ErrProviderUnavailable
	default:
		sentinel = ErrInvalidResponse
	}
	if msg == "" {
		return fmt.Errorf("%w: status %d", sentinel, code)
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, code, msg)
}

// ClassifyError maps transport-level errors to sentinel errors.
func ClassifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
