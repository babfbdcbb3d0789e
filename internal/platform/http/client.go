package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Client is a wrapper for HTTP client with rate limiting and retries.
// It satisfies the Do-only client interface of the Telegram and Stripe SDKs.
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter

	maxRetryTimeout time.Duration
}

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSec  int           `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
	MaxRetryTimeout time.Duration `mapstructure:"max_retry_timeout" yaml:"max_retry_timeout"`
}

// NewClient creates a new HTTP client with rate limiting
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
		Limiter:         rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		maxRetryTimeout: opts.MaxRetryTimeout,
	}
}

// Do sends req, waiting for the limiter and retrying transport errors,
// 429 and 5xx responses with exponential backoff. Other responses, including
// 4xx, are returned to the caller as-is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoRequest(req.Context(), req)
}

// DoRequest performs an HTTP request with rate limiting and retries
func (c *Client) DoRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	var resp *http.Response
	attempt := 0
	operation := func() error {
		if err := c.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		if attempt > 0 && req.Body != nil {
			if req.GetBody == nil {
				return backoff.Permanent(fmt.Errorf("%s %s: body cannot be replayed", req.Method, req.URL))
			}
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Body = body
		}
		attempt++

		var err error
		resp, err = c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		if retryable(resp.StatusCode) {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return &HTTPStatusError{StatusCode: resp.StatusCode}
		}
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.maxRetryTimeout

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// HTTPStatusError represents a response that was still failing when retries ran out
type HTTPStatusError struct {
	StatusCode int
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}
