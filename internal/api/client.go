// Package api defines the HTTP surface shared by the server and the CLI:
// the Endpoint contract binding each route to its CLI mirror, the route
// registry, and a small JSON client the mirrors use to call a running
// server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the Quill server's JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given server URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// Every endpoint acknowledges synchronously and long-running
		// work is observed by polling, so responses are small and fast.
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Get fetches path and decodes the JSON response into result.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post sends body as JSON to path and decodes the response into result.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Delete issues a DELETE and decodes the response into result when given.
func (c *Client) Delete(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodDelete, path, nil, result)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}

	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ErrorResponse matches the server's error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error is a non-2xx reply from the server, carrying the status code so
// callers can react to the pipeline's failure classes.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

func decodeError(status int, raw []byte) error {
	var body ErrorResponse
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return &Error{Status: status, Message: body.Error}
	}
	return &Error{Status: status, Message: strings.TrimSpace(string(raw))}
}

// IsNotFound reports whether err is the server saying the project (or
// its running task) does not exist.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict reports whether err is an invalid status transition or a
// lost version race; re-reading the project shows the current state.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

// IsPaymentRequired reports whether err is an admission denial for lack
// of credits.
func IsPaymentRequired(err error) bool {
	return hasStatus(err, http.StatusPaymentRequired)
}

func hasStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}
