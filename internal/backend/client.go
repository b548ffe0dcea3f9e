// Package backend is the typed client for the portal's backend API. All
// business logic lives behind it; the portal only renders state and issues
// requests. Responses follow a uniform envelope of status, message and data.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meridian-hq/meridian-portal/internal/shared"
)

// APIError is the normalized form of any non-2xx backend response. Err,
// when set, carries the shared sentinel the status maps onto so callers can
// branch with errors.Is.
type APIError struct {
	Status  int
	Message string
	Body    []byte
	Err     error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("backend: request failed with status %d", e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// envelope is the uniform response wrapper used by every backend endpoint.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the backend service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client against baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// WithTimeout overrides the default request timeout and returns the client.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.httpClient.Timeout = d
	}
	return c
}

// do issues a request and decodes the envelope's data into out when
// provided. token, when non-empty, is sent as a bearer credential.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return normalizeError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("backend: decode envelope: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("backend: envelope has no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("backend: decode data: %w", err)
	}
	return nil
}

// normalizeError converts a failed response into an APIError carrying the
// server message when one is present and a generic fallback otherwise.
func normalizeError(status int, raw []byte) error {
	apiErr := &APIError{Status: status, Body: raw}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		apiErr.Message = env.Message
	}
	switch status {
	case http.StatusUnauthorized:
		apiErr.Err = shared.ErrNotAuthenticated
	case http.StatusNotFound:
		apiErr.Err = shared.ErrNotFound
	}
	return apiErr
}

// Health reports whether the backend answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}
