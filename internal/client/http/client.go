// Package http is a small JSON REST client: base URL resolution, default
// headers, transport middleware and retries for idempotent methods.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

const defaultTimeout = 30 * time.Second

// RequestOption modifies a single outgoing request.
type RequestOption func(*http.Request)

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// Middleware wraps the client's round tripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// HTTPError is returned for responses with a status of 400 or above. URL has
// credentials redacted.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Method     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d %s: %s", e.Method, e.URL, e.StatusCode, e.Status, e.Body)
}

// HTTPClient sends JSON requests relative to a base URL.
type HTTPClient struct {
	client      *http.Client
	baseURL     string
	headers     http.Header
	retry       *RetryConfig
	middlewares []Middleware
}

// NewHTTPClient creates a client. Every request accepts JSON; retries follow
// DefaultRetryConfig unless overridden.
func NewHTTPClient(options ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		client:  &http.Client{Timeout: defaultTimeout},
		headers: http.Header{"Accept": []string{"application/json"}},
		retry:   DefaultRetryConfig(),
	}
	for _, opt := range options {
		opt(c)
	}

	if len(c.middlewares) > 0 {
		rt := c.client.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		// The first middleware ends up outermost.
		for i := len(c.middlewares) - 1; i >= 0; i-- {
			rt = c.middlewares[i](rt)
		}
		c.client.Transport = rt
	}
	return c
}

// WithBaseURL makes request paths relative to baseURL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *HTTPClient) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithRetryConfig replaces the retry policy. Nil disables retries.
func WithRetryConfig(config *RetryConfig) ClientOption {
	return func(c *HTTPClient) { c.retry = config }
}

// WithMiddleware wraps the transport with m.
func WithMiddleware(m Middleware) ClientOption {
	return func(c *HTTPClient) { c.middlewares = append(c.middlewares, m) }
}

// WithQueryParam appends a query parameter to the request.
func WithQueryParam(key, value string) RequestOption {
	return func(req *http.Request) {
		q := req.URL.Query()
		q.Add(key, value)
		req.URL.RawQuery = q.Encode()
	}
}

// Get sends a bodiless GET.
func (c *HTTPClient) Get(ctx context.Context, path string, options ...RequestOption) (*http.Response, error) {
	return c.DoRequest(ctx, http.MethodGet, path, nil, options...)
}

// Post sends body as JSON. A nil body sends no payload and no Content-Type.
func (c *HTTPClient) Post(ctx context.Context, path string, body interface{}, options ...RequestOption) (*http.Response, error) {
	return c.DoRequest(ctx, http.MethodPost, path, body, options...)
}

// Put sends body as JSON.
func (c *HTTPClient) Put(ctx context.Context, path string, body interface{}, options ...RequestOption) (*http.Response, error) {
	return c.DoRequest(ctx, http.MethodPut, path, body, options...)
}

// DoRequest sends one logical request. Responses of 400 or above are
// returned together with an *HTTPError whose body has been read; the
// response body is replaced so callers can still decode it.
func (c *HTTPClient) DoRequest(ctx context.Context, method, path string, body interface{}, options ...RequestOption) (*http.Response, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	build := func() (*http.Request, error) {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, r)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, v := range c.headers {
			req.Header[k] = append([]string(nil), v...)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for _, opt := range options {
			opt(req)
		}
		return req, nil
	}

	req, err := build()
	if err != nil {
		return nil, err
	}
	logURL := RedactURL(req.URL)
	start := time.Now()

	var resp *http.Response
	if c.retryable(method) {
		resp, err = c.sendWithRetry(ctx, req, build)
	} else {
		resp, err = c.client.Do(req)
	}

	fields := []zap.Field{
		zap.String("method", method),
		zap.String("url", logURL),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		logger.Error("HTTP request failed", append(fields, zap.Error(err))...)
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	if resp.StatusCode < 400 {
		logger.Debug("HTTP request successful", append(fields, zap.Int("status", resp.StatusCode))...)
		return resp, nil
	}

	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	logger.Warn("HTTP error response", append(fields,
		zap.Int("status", resp.StatusCode),
		zap.String("body", string(raw)))...)
	return resp, &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		URL:        logURL,
		Method:     method,
		Body:       string(raw),
	}
}

func (c *HTTPClient) resolve(path string) (string, error) {
	if c.baseURL == "" {
		if _, err := url.ParseRequestURI(path); err != nil {
			return "", fmt.Errorf("invalid path used without base URL: %s, error: %w", path, err)
		}
		return path, nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path, nil
}
