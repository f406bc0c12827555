// Package apiclient talks to the tracker REST backend. All failures are returned
// as *APIError and no request is retried.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuongbtq/job-tracker/internal/domain"
)

const (
	jobsPath  = "/jobs"
	usersPath = "/users"

	// DefaultBaseURL is used when no base URL is configured
	DefaultBaseURL = "http://localhost:3001"
)

// Config holds API client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// RequestEditor can modify a request before it is sent, e.g. to add auth headers
type RequestEditor func(req *http.Request) error

// Option configures a Client
type Option func(*Client)

// WithHTTPClient uses a copy of hc as the underlying http.Client. The copy gets
// the configured timeout; hc itself is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		c.http = &clone
	}
}

// WithRequestEditor registers an editor applied to every request
func WithRequestEditor(fn RequestEditor) Option {
	return func(c *Client) {
		c.editors = append(c.editors, fn)
	}
}

// Client is the backend REST client
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
	editors []RequestEditor
}

// NewClient creates a new Client
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultRequestTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Client{
		baseURL: baseURL,
		timeout: timeout,
		http:    &http.Client{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Timeout = timeout

	return c, nil
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends one request and decodes a JSON response into out when out is non-nil.
// It is the only place errors are normalized.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Message: "failed to encode request body", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &APIError{Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for _, edit := range c.editors {
		if err := edit(req); err != nil {
			return &APIError{Message: "failed to prepare request", Err: err}
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := c.normalizeTransportError(err)
		c.logger.Warn("Backend request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Duration("latency", time.Since(start)),
			slog.String("error", apiErr.Message),
		)
		return apiErr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.normalizeTransportError(err)
	}

	c.logger.Debug("Backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return normalizeStatusError(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &APIError{
			Message: "failed to decode response",
			Status:  resp.StatusCode,
			Data:    payload(respBody),
			Err:     err,
		}
	}
	return nil
}
