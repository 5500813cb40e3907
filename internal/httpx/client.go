// Package httpx provides a small HTTP client wrapper with retries,
// timeouts, and exponential back-off. The Client is safe for concurrent
// use: its fields are immutable after construction and the underlying
// http.Client is concurrency-safe.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps net/http.Client with retry and timeout behaviour.
type Client struct {
	http       *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewClient creates a Client with the given per-request timeout and
// retry count.
func NewClient(timeout time.Duration, maxRetries int) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
	}
}

// Do executes the request with retries on transient failures (5xx or
// network errors), using exponential back-off between attempts.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var (
		resp *http.Response
		err  error
	)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err = c.http.Do(req.Clone(ctx))
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt == c.maxRetries {
			break
		}

		// Drain body on retry to allow connection reuse.
		if resp != nil {
			DrainClose(resp)
		}

		delay := c.baseDelay * (1 << uint(attempt))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("httpx: all %d attempts failed: %w", c.maxRetries+1, err)
	}
	// A 5xx on the final attempt comes back with its body intact so the
	// caller can read the server's message.
	return resp, nil
}

// DrainClose reads the remainder of a response body and closes it.
func DrainClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
