// Package feed fetches the upstream alert payload. It performs no
// interpretation: the caller gets the raw body or an error.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable covers timeout, network failure and non-success status.
// A cycle that sees it is skipped and retried on the next tick.
var ErrUnavailable = errors.New("feed unavailable")

type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("User-Agent", "alertd/1.0 (Go)")
	h.Set("Cache-Control", "no-cache")
	if k := strings.TrimSpace(c.apiKey); k != "" {
		h.Set("Authorization", "Bearer "+k)
	}
	return h
}

// Fetch returns the raw upstream payload.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header = c.headers()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		// Drain a bounded prefix so the connection can be reused.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: http %d GET %s: %s",
			ErrUnavailable, resp.StatusCode, c.url, strings.TrimSpace(string(msg)))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return body, nil
}

// Probe checks reachability for the test-connection endpoint.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.Fetch(ctx)
	return err
}

// URL reports the configured endpoint, for diagnostics.
func (c *Client) URL() string { return c.url }
