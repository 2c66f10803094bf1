// Package network holds the clients that talk to a running macroreel service.
package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"macroreel/internal/macro"
)

// APIClient queries the local HTTP API of a running service.
type APIClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewAPIClient creates a client for baseURL such as "http://127.0.0.1:18090".
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

func (c *APIClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("service not reachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error.Code != "" {
			return fmt.Errorf("GET %s: %s: %s", path, body.Error.Code, body.Error.Message)
		}
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Ping checks the health endpoint.
func (c *APIClient) Ping(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

// Status fetches the engine status.
func (c *APIClient) Status(ctx context.Context) (macro.Status, error) {
	var st macro.Status
	err := c.get(ctx, "/api/status", &st)
	return st, err
}
