// Package client talks to the hydromet HTTP API and builds upload strategies
// for every resource kind.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"hydromet/internal/config"
	"hydromet/internal/upload"
)

const maxResponseBytes = 8 << 20

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d %s: %s", e.Status, e.Code, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client is an API client. GET, PUT and DELETE requests are retried on
// transient failures; POST requests are sent once.
type Client struct {
	baseURL string
	retry   *retryablehttp.Client
	rng     upload.Range
	clock   clockwork.Clock
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.retry.HTTPClient = hc }
}

// WithRetryMax sets how many times an idempotent request is retried.
func WithRetryMax(n int) Option {
	return func(c *Client) { c.retry.RetryMax = n }
}

// WithRetryWait sets the retry backoff bounds.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.retry.RetryWaitMin = minWait
		c.retry.RetryWaitMax = maxWait
	}
}

// WithRange sets the transfer progress range used by built strategies.
func WithRange(r upload.Range) Option {
	return func(c *Client) { c.rng = r }
}

// WithClock sets the clock used for default timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the API rooted at baseURL, e.g.
// http://localhost:8080/api/v1.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: invalid api url %q", baseURL)
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.RetryWaitMin = 200 * time.Millisecond
	retry.RetryWaitMax = 5 * time.Second
	retry.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	retry.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		retry:   retry,
		rng:     upload.DefaultRange,
		clock:   clockwork.NewRealClock(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	retry.Logger = retryLogger{logger: c.logger}
	return c, nil
}

// NewFromConfig creates a Client from the client config section.
func NewFromConfig(cfg config.ClientConfig, logger zerolog.Logger) (*Client, error) {
	opts := []Option{
		WithLogger(logger),
		WithRetryMax(cfg.RetryMax),
		WithRange(upload.Range{Low: cfg.RangeLow, High: cfg.RangeHigh}),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return New(cfg.APIURL, opts...)
}

// envelope mirrors the API response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *PageMeta `json:"meta"`
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// do sends one request and unwraps the envelope. A non-2xx answer becomes
// an *APIError.
func (c *Client) do(
	ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string,
) (*envelope, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var (
		resp *http.Response
		err  error
	)
	if idempotent(method) {
		var req *retryablehttp.Request
		if req, err = retryablehttp.NewRequestWithContext(ctx, method, target, body); err != nil {
			return nil, fmt.Errorf("building %s %s: %w", method, path, err)
		}
		setHeaders(req.Header, contentType)
		resp, err = c.retry.Do(req)
	} else {
		var req *http.Request
		if req, err = http.NewRequestWithContext(ctx, method, target, body); err != nil {
			return nil, fmt.Errorf("building %s %s: %w", method, path, err)
		}
		setHeaders(req.Header, contentType)
		resp, err = c.retry.HTTPClient.Do(req)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}
	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("api call")

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
			if len(apiErr.Message) > 512 {
				apiErr.Message = apiErr.Message[:512]
			}
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding %s %s response: %w", method, path, decodeErr)
	}
	return &env, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in any) (*envelope, error) {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, query, body, contentType)
}

func setHeaders(h http.Header, contentType string) {
	h.Set("Accept", "application/json")
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
}
