package canvas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Classification errors. Permanent ones mean a retry cannot help.
var (
	ErrNotFound         = errors.New("canvas: resource not found")
	ErrUnauthorized     = errors.New("canvas: unauthorized")
	ErrForbidden        = errors.New("canvas: access forbidden")
	ErrRateLimited      = errors.New("canvas: rate limited")
	ErrServerError      = errors.New("canvas: server error")
	ErrMalformedRef     = errors.New("canvas: malformed source ref")
	ErrUnexpectedStatus = errors.New("canvas: unexpected status")
)

// Options configures the fetch client.
type Options struct {
	// BaseURL resolves relative source refs. Refs that are absolute URLs
	// work without it.
	BaseURL string

	// Token is sent as a bearer credential when set. It is never logged
	// or persisted.
	Token string

	// UserAgent identifies the client.
	// Default: Canvas-Downloader/1.0.0
	UserAgent string

	// Timeout covers a whole fetch attempt, response body included.
	// Default: 30s
	Timeout time.Duration

	// MaxParallel bounds in-flight fetches.
	// Default: 4
	MaxParallel int

	// MinInterval spaces the start of consecutive fetches.
	// Default: 100ms
	MinInterval time.Duration

	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 16
	MaxIdleConnsPerHost int
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent:           "Canvas-Downloader/1.0.0",
		Timeout:             30 * time.Second,
		MaxParallel:         4,
		MinInterval:         100 * time.Millisecond,
		MaxIdleConnsPerHost: 16,
	}
}

// Client fetches artifacts under a shared rate budget.
type Client struct {
	client *http.Client
	opts   Options
	base   *url.URL
	budget *Budget
}

// NewClient creates a fetch client with the given options.
func NewClient(opts Options) (*Client, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = "Canvas-Downloader/1.0.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 4
	}
	if opts.MinInterval < 0 {
		opts.MinInterval = 0
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = 16
	}

	var base *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("canvas: parse base url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("canvas: base url %q must be absolute", opts.BaseURL)
		}
		base = u
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // Content-Length must describe the bytes we store
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts:   opts,
		base:   base,
		budget: NewBudget(opts.MaxParallel, opts.MinInterval),
	}, nil
}

// Budget exposes the shared rate budget, mainly for instrumentation.
func (c *Client) Budget() *Budget {
	return c.budget
}

// Fetch retrieves one artifact. The returned size is the Content-Length,
// or -1 when unknown. The body must be closed; closing it releases the
// budget slot.
func (c *Client) Fetch(ctx context.Context, ref string) (io.ReadCloser, int64, error) {
	target, err := c.resolveRef(ref)
	if err != nil {
		return nil, 0, err
	}

	if err := c.budget.Acquire(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.budget.Release()
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedRef, err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.budget.Release()
		return nil, 0, fmt.Errorf("fetch %s: %w", ref, err)
	}

	if err := checkStatusCode(resp.StatusCode); err != nil {
		resp.Body.Close()
		c.budget.Release()
		return nil, 0, fmt.Errorf("fetch %s: %w", ref, err)
	}

	body := &budgetBody{ReadCloser: resp.Body, budget: c.budget}
	return body, resp.ContentLength, nil
}

// resolveRef turns a source ref into an absolute URL.
func (c *Client) resolveRef(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty ref", ErrMalformedRef)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedRef, err)
	}
	if u.IsAbs() {
		return ref, nil
	}
	if c.base == nil {
		return "", fmt.Errorf("%w: relative ref %q without base url", ErrMalformedRef, ref)
	}
	return c.base.ResolveReference(u).String(), nil
}

// budgetBody releases the budget slot when the response body is closed.
type budgetBody struct {
	io.ReadCloser
	budget *Budget
	once   sync.Once
}

func (b *budgetBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.budget.Release)
	return err
}

// checkStatusCode returns a classified error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %d", ErrRateLimited, code)
	case code >= 500:
		return fmt.Errorf("%w: %d", ErrServerError, code)
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusForbidden:
		return ErrForbidden
	default:
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, code)
	}
}

// IsPermanent reports whether err is a fetch failure retry cannot cure:
// missing or inaccessible resources, malformed refs, or responses outside
// the expected status set. Timeouts, rate limiting, server errors and
// connection failures are all considered transient.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrMalformedRef) ||
		errors.Is(err, ErrUnexpectedStatus)
}
