// Package agent talks to the external agent webhook and owns the retry
// policy around it.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fieldreport/config"
)

const (
	requestKey      = "agente"
	maxResponseBody = 4 << 20
	errorBodyLimit  = 512
)

// Client posts consultas to the agent webhook.
type Client struct {
	URL        string
	HTTPClient *http.Client
	MaxRetries int
	BaseDelay  time.Duration
}

// NewClient builds a client with a 60s request timeout.
func NewClient(url string, maxRetries int, baseDelay time.Duration) *Client {
	return &Client{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
	}
}

// Configured reports whether a webhook URL is set.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.URL) != ""
}

type request struct {
	Key      string `json:"key"`
	Consulta any    `json:"consulta"`
}

// Query sends a natural-language question.
func (c *Client) Query(ctx context.Context, consulta string) (json.RawMessage, error) {
	return c.call(ctx, consulta)
}

// Submit sends structured data as {"data": data}.
func (c *Client) Submit(ctx context.Context, data map[string]any) (json.RawMessage, error) {
	if data == nil {
		data = map[string]any{}
	}
	return c.call(ctx, map[string]any{"data": data})
}

func (c *Client) call(ctx context.Context, consulta any) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrAgentNotConfigured
	}

	body, err := json.Marshal(request{Key: requestKey, Consulta: consulta})
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to encode agent request: %w", err))
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Agent] POST %s (%d bytes)", c.URL, len(body))
	}

	return WithRetry(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return c.post(ctx, body)
	}, c.MaxRetries, c.BaseDelay)
}

func (c *Client) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to create agent request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read agent response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("agent webhook returned HTTP %d: %s", resp.StatusCode, truncate(data, errorBodyLimit))
	}

	if isAccepted(data) {
		return nil, ErrAsyncWebhook
	}

	return decodeObject(data)
}

// decodeObject accepts only a JSON object body.
func decodeObject(data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: body is not JSON: %s", ErrMalformedResponse, truncate(trimmed, errorBodyLimit))
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: body is not a JSON object: %s", ErrMalformedResponse, truncate(trimmed, errorBodyLimit))
	}
	return json.RawMessage(trimmed), nil
}

// isAccepted matches the async acknowledgement: "accepted" in any case,
// bare or as a JSON string.
func isAccepted(data []byte) bool {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"'`)
	return strings.EqualFold(strings.TrimSpace(s), "accepted")
}

func truncate(data []byte, limit int) string {
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "..."
}
