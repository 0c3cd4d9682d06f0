package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Client is a thin HTTP client for the outreach backend REST API.
// Every failure is normalized into *Error exactly once, here. The client
// never retries; retry policy belongs to the query cache.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu    sync.RWMutex
	token string
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sets a bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// DefaultTimeout is the request timeout when none is configured.
const DefaultTimeout = 10 * time.Second

// NewClient creates a new backend client rooted at baseURL
// (e.g., http://localhost:8000).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken replaces the bearer token for subsequent requests. An empty
// token sends requests unauthenticated.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// HasToken reports whether requests carry a bearer token.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) get(
	ctx context.Context,
	path string,
	query url.Values,
	result any,
) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

// post performs an HTTP POST request with an optional JSON body and
// unmarshals the JSON response.
func (c *Client) post(
	ctx context.Context,
	path string,
	query url.Values,
	body any,
	result any,
) error {
	return c.do(ctx, http.MethodPost, path, query, body, result)
}

// errorBody is the backend's error envelope. Detail is usually a string
// but validation failures return a list, so it is decoded lazily.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// do is the core HTTP method that builds the request, applies auth and
// rate limiting, and normalizes every failure into *Error.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body any,
	result any,
) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return unknown(fmt.Errorf("marshaling request body: %w", err))
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return unknown(fmt.Errorf("creating request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return unknown(fmt.Errorf("waiting for rate limiter: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Caller abandonment is not a connectivity problem.
		if errors.Is(err, context.Canceled) {
			return unknown(err)
		}
		slog.Warn("no response from backend",
			"method", method, "path", path, "error", err)
		return &Error{Kind: KindConnectivity, Message: MsgConnectivity, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return unknown(err)
		}
		return &Error{Kind: KindConnectivity, Message: MsgConnectivity, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := detailMessage(respBody)
		slog.Warn("backend returned error status",
			"method", method, "path", path,
			"status", resp.StatusCode, "detail", msg)
		return &Error{
			Kind:    KindServer,
			Status:  resp.StatusCode,
			Message: msg,
			Err: fmt.Errorf(
				"unexpected status %d on %s %s", resp.StatusCode, method, path,
			),
		}
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return unknown(fmt.Errorf(
			"unmarshaling response from %s %s: %w", method, path, err,
		))
	}

	return nil
}

// detailMessage extracts the human-readable detail string from an error
// response body, defaulting to the generic message.
func detailMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return MsgServerDefault
	}
	var detail string
	if err := json.Unmarshal(eb.Detail, &detail); err != nil || detail == "" {
		return MsgServerDefault
	}
	return detail
}

// unknown wraps an error the adapter cannot classify, passing its
// message through unchanged.
func unknown(err error) *Error {
	return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
}
