package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPProber declares the service ready when a health endpoint answers with
// a 2xx status.
type HTTPProber struct {
	URL    string
	client *http.Client
}

// NewHTTPProber builds a prober for url. perRequestTimeout bounds each
// individual check, not the overall wait (WaitReady owns that).
func NewHTTPProber(url string, perRequestTimeout time.Duration) *HTTPProber {
	if perRequestTimeout <= 0 {
		perRequestTimeout = 2 * time.Second
	}
	return &HTTPProber{
		URL:    url,
		client: &http.Client{Timeout: perRequestTimeout},
	}
}

func (p *HTTPProber) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (p *HTTPProber) Describe() string { return "http:" + p.URL }
