// Package push delivers device notifications through an Expo-compatible
// push API.
package push

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"reach_server/core/port/out"
	"reach_server/pkg/httputil"
)

// maxBatch is the push API's per-request message limit.
const maxBatch = 100

// Config holds push API configuration.
type Config struct {
	URL         string
	AccessToken string
}

// Disabled is the sender used when push is not configured. It is a shared
// value; callers compare against it or check Enabled.
var Disabled out.PushSender = disabledSender{}

type disabledSender struct{}

func (disabledSender) Enabled() bool                                { return false }
func (disabledSender) Send(context.Context, *out.PushMessage) error { return nil }

// New returns a configured client, or Disabled when no access token is set.
// Call it once at startup and pass the result to its users.
func New(cfg Config) out.PushSender {
	if cfg.AccessToken == "" || cfg.URL == "" {
		return Disabled
	}
	return NewClient(cfg, httputil.NewOptimizedClient(httputil.PushClientConfig()))
}

// Client sends push messages over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a client with the given HTTP client.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	return &Client{cfg: cfg, http: httpClient}
}

var _ out.PushSender = (*Client)(nil)

func (c *Client) Enabled() bool { return true }

type message struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
	Sound string         `json:"sound,omitempty"`
}

type ticket struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details"`
}

type sendResponse struct {
	Data []ticket `json:"data"`
}

// Send delivers msg to every token in msg.To, batching per request limit.
// Tokens the service reports as unregistered come back as
// *out.InvalidTokensError once all batches are sent.
func (c *Client) Send(ctx context.Context, msg *out.PushMessage) error {
	var invalid []string
	for start := 0; start < len(msg.To); start += maxBatch {
		end := start + maxBatch
		if end > len(msg.To) {
			end = len(msg.To)
		}
		bad, err := c.sendBatch(ctx, msg, msg.To[start:end])
		if err != nil {
			return err
		}
		invalid = append(invalid, bad...)
	}
	if len(invalid) > 0 {
		return &out.InvalidTokensError{Tokens: invalid}
	}
	return nil
}

func (c *Client) sendBatch(ctx context.Context, msg *out.PushMessage, tokens []string) ([]string, error) {
	batch := make([]message, len(tokens))
	for i, t := range tokens {
		batch[i] = message{To: t, Title: msg.Title, Body: msg.Body, Data: msg.Data, Sound: "default"}
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("push API HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result sendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode push response: %w", err)
	}

	var invalid []string
	for i, t := range result.Data {
		if i >= len(tokens) {
			break
		}
		if t.Status == "error" && t.Details.Error == "DeviceNotRegistered" {
			invalid = append(invalid, tokens[i])
		}
	}
	return invalid, nil
}
