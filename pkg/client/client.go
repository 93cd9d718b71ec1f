// Package client is the HTTP client the CLI uses to control a running
// warden daemon.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client talks to a warden daemon's control API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:9610/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new warden API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		logger:  cfg.Logger,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// IsReachable reports whether the daemon answers on the status endpoint.
func (c *Client) IsReachable(ctx context.Context) bool {
	var st Status
	return c.get(ctx, "/status", &st) == nil
}

// Start asks the daemon to start the service and waits for the outcome.
func (c *Client) Start(ctx context.Context) error {
	return c.post(ctx, "/start")
}

// Stop asks the daemon to stop the service.
func (c *Client) Stop(ctx context.Context) error {
	return c.post(ctx, "/stop")
}

// Restart asks the daemon to restart the service.
func (c *Client) Restart(ctx context.Context) error {
	return c.post(ctx, "/restart")
}

// Status fetches the current supervisor status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.get(ctx, "/status", &st)
	return st, err
}

// History fetches the most recent lifecycle events.
func (c *Client) History(ctx context.Context, limit int) ([]Event, error) {
	var events []Event
	path := "/history"
	if limit > 0 {
		path = fmt.Sprintf("/history?limit=%d", limit)
	}
	err := c.get(ctx, path, &events)
	return events, err
}

func (c *Client) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	return decodeError(resp)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var er ErrorResponse
	if err := json.Unmarshal(b, &er); err == nil && er.Error != "" {
		if kindErr := kindToErr(er.Kind); kindErr != nil {
			return fmt.Errorf("%w: %s", kindErr, er.Error)
		}
		return fmt.Errorf("daemon error (%d): %s", resp.StatusCode, er.Error)
	}
	return fmt.Errorf("daemon error (%d)", resp.StatusCode)
}
