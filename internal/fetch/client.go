package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/collabspace/assetkit/internal/exporter"
)

// Common errors.
var (
	ErrNotFound     = errors.New("fetch: resource not found")
	ErrForbidden    = errors.New("fetch: access forbidden")
	ErrUnauthorized = errors.New("fetch: unauthorized")
	ErrServerError  = errors.New("fetch: server error")
	ErrTooLarge     = errors.New("fetch: response exceeds size limit")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
	err    error
}

func (e *StatusError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%v: %s", e.err, e.Status)
	}
	return fmt.Sprintf("fetch: unexpected status: %s", e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.err
}

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 8
	MaxIdleConnsPerHost int

	// Timeout for individual requests.
	// Default: 60s
	Timeout time.Duration

	// MaxBytes caps the body size of a single asset. Zero means no limit.
	// Default: 512MiB
	MaxBytes int64

	// UserAgent is sent with every request when set.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 8,
		Timeout:             60 * time.Second,
		MaxBytes:            512 * 1024 * 1024,
		UserAgent:           "collabspace-assetkit",
	}
}

// Client fetches asset bytes over HTTP. It implements exporter.Fetcher.
type Client struct {
	client *http.Client
	opts   Options
}

var _ exporter.Fetcher = (*Client)(nil)

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = DefaultOptions().MaxIdleConnsPerHost
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// FetchBytes performs a single GET and returns the body and its content type.
// Non-2xx responses are returned as *StatusError.
func (c *Client) FetchBytes(ctx context.Context, url string) (exporter.Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return exporter.Blob{}, fmt.Errorf("create request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return exporter.Blob{}, err
	}
	defer resp.Body.Close()

	if err := checkStatusCode(resp.StatusCode, resp.Status); err != nil {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return exporter.Blob{}, err
	}

	var body io.Reader = resp.Body
	if c.opts.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, c.opts.MaxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return exporter.Blob{}, fmt.Errorf("read body: %w", err)
	}
	if c.opts.MaxBytes > 0 && int64(len(data)) > c.opts.MaxBytes {
		return exporter.Blob{}, ErrTooLarge
	}

	return exporter.Blob{
		Bytes:       data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int, status string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return &StatusError{Code: code, Status: status, err: ErrNotFound}
	case code == http.StatusForbidden:
		return &StatusError{Code: code, Status: status, err: ErrForbidden}
	case code == http.StatusUnauthorized:
		return &StatusError{Code: code, Status: status, err: ErrUnauthorized}
	case code >= 500:
		return &StatusError{Code: code, Status: status, err: ErrServerError}
	default:
		return &StatusError{Code: code, Status: status}
	}
}
