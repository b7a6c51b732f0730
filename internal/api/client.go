// Package api is the HTTP client for the Coach AI backend.
//
// Every call returns a normalized Response whose Data is always valid JSON:
// when the backend sends something unparseable, a synthetic
// {"error": true, "message": "..."} payload takes its place. Transport
// failures are returned as errors wrapping ErrNetwork and never become a
// Response.
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

	"github.com/google/uuid"

	"github.com/guilhermegouw/coach/internal/config"
	"github.com/guilhermegouw/coach/internal/debug"
)

// ErrNetwork marks failures where no HTTP response was received.
var ErrNetwork = errors.New("network error")

// RequestIDHeader carries a per-request id for backend log correlation.
const RequestIDHeader = "X-Request-ID"

// HTTPDoer is the subset of *http.Client the Client depends on.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the backend rooted at a configured base URL.
type Client struct {
	http    HTTPDoer
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.http = doer
	}
}

// WithBaseURL overrides the base URL derived from configuration.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// New creates a client for cfg. The configured timeout bounds every request;
// zero disables it.
func New(cfg config.APIConfig, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: cfg.Timeout()},
		baseURL: cfg.Endpoint(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the URL every endpoint is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOptions describes a single call.
type RequestOptions struct {
	Headers map[string]string
	Method  string
	Body    []byte
}

// Request performs a call against baseURL+endpoint.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions) (*Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	url := c.baseURL + endpoint

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building request %s %s: %w", method, endpoint, err)
	}

	reqID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		debug.Error("api", err, fmt.Sprintf("%s %s (request %s)", method, endpoint, reqID))
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, endpoint, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		debug.Error("api", err, fmt.Sprintf("reading %s %s (request %s)", method, endpoint, reqID))
		return nil, fmt.Errorf("%w: reading %s %s: %w", ErrNetwork, method, endpoint, err)
	}

	debug.Log("[api] %s %s -> %d in %s (request %s, %d bytes)",
		method, endpoint, resp.StatusCode, time.Since(start).Round(time.Millisecond), reqID, len(raw))

	return newResponse(resp.StatusCode, raw), nil
}

// Get performs a GET. A non-empty token is sent as a bearer credential.
func (c *Client) Get(ctx context.Context, endpoint, token string) (*Response, error) {
	return c.Request(ctx, endpoint, RequestOptions{
		Method:  http.MethodGet,
		Headers: authHeaders(token),
	})
}

// Post JSON-encodes body and performs a POST.
func (c *Client) Post(ctx context.Context, endpoint string, body any, token string) (*Response, error) {
	return c.send(ctx, http.MethodPost, endpoint, body, token)
}

// Put JSON-encodes body and performs a PUT.
func (c *Client) Put(ctx context.Context, endpoint string, body any, token string) (*Response, error) {
	return c.send(ctx, http.MethodPut, endpoint, body, token)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, endpoint, token string) (*Response, error) {
	return c.Request(ctx, endpoint, RequestOptions{
		Method:  http.MethodDelete,
		Headers: authHeaders(token),
	})
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any, token string) (*Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s %s body: %w", method, endpoint, err)
	}
	return c.Request(ctx, endpoint, RequestOptions{
		Method:  method,
		Headers: authHeaders(token),
		Body:    encoded,
	})
}

func authHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}
