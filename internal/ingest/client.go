package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a running daemon.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient returns a Client for the daemon at addr (host:port).
func NewClient(addr, token string) *Client {
	return &Client{
		BaseURL: "http://" + addr,
		Token:   token,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Status fetches /status. Any error means the daemon is not usable.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary fetches the live display state.
func (c *Client) Summary(ctx context.Context) (*SummaryResponse, error) {
	var out SummaryResponse
	if err := c.do(ctx, http.MethodGet, "/v1/summary", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Clear asks the daemon to reset the summary.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/summary/clear", nil)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
