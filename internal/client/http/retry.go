package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig controls exponential backoff retries.
type RetryConfig struct {
	MaxRetries           int
	InitialInterval      time.Duration
	MaxInterval          time.Duration
	Multiplier           float64
	MaxElapsedTime       time.Duration
	RetryableStatusCodes []int
	// RetryableMethods lists the methods that may be repeated. POST is left
	// out: a replayed POST can create a second remote document.
	RetryableMethods []string
}

// DefaultRetryConfig retries GET and PUT up to three times on throttling,
// timeouts and 5xx gateway errors.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:           3,
		InitialInterval:      200 * time.Millisecond,
		MaxInterval:          5 * time.Second,
		Multiplier:           2.0,
		MaxElapsedTime:       20 * time.Second,
		RetryableStatusCodes: []int{408, 429, 500, 502, 503, 504},
		RetryableMethods:     []string{http.MethodGet, http.MethodPut},
	}
}

func (c *HTTPClient) retryable(method string) bool {
	return c.retry != nil && c.retry.MaxRetries > 0 && slices.Contains(c.retry.RetryableMethods, method)
}

// sendWithRetry sends first and, on transport errors or retryable statuses,
// rebuilds and resends it. When retries run out on a status code the last
// response is returned so the caller can report it.
func (c *HTTPClient) sendWithRetry(ctx context.Context, first *http.Request, build func() (*http.Request, error)) (*http.Response, error) {
	var (
		resp    *http.Response
		sendErr error
		attempt int
	)

	operation := func() error {
		req := first
		if attempt > 0 {
			var err error
			if req, err = build(); err != nil {
				return backoff.Permanent(err)
			}
		}
		attempt++

		// nolint:bodyclose // closed before the next attempt or handed to the caller
		resp, sendErr = c.client.Do(req)
		if sendErr != nil {
			return sendErr
		}
		if !slices.Contains(c.retry.RetryableStatusCodes, resp.StatusCode) {
			return nil
		}
		if attempt <= c.retry.MaxRetries {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		return fmt.Errorf("retryable status code: %d", resp.StatusCode)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retry.InitialInterval
	policy.MaxInterval = c.retry.MaxInterval
	policy.Multiplier = c.retry.Multiplier
	policy.MaxElapsedTime = c.retry.MaxElapsedTime

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retry.MaxRetries)), ctx))
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if sendErr != nil {
		return nil, sendErr
	}
	if resp == nil {
		return nil, err
	}
	return resp, nil
}
