// Package web provides the rate-limited HTTP client that backs
// dispatcher.Fetcher: raw page retrieval for url targets and DOI→URL
// resolution for doi targets, both feeding dispatcher.ExtractText.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/lancet/internal/common"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultRateLimit     = 5 // requests per second, per Client instance
	DefaultMaxBodyBytes  = 34 * 1024 * 1024
	DefaultDOIResolver   = "https://doi.org"
	defaultUserAgent     = "lancet-research-core/1.0 (+https://github.com/bobmcallan/lancet)"
)

// Client implements dispatcher.Fetcher against the live web. It never
// retries on its own; the dispatcher's per-job retry (up to the job's
// MaxAttempts) covers transient failures.
type Client struct {
	httpClient  *http.Client
	logger      *common.Logger
	limiter     *rate.Limiter
	maxBody     int64
	userAgent   string
	doiResolver string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond) }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithMaxBodyBytes caps how much of a response body is read, guarding
// against runaway fetches of unbounded streaming responses.
func WithMaxBodyBytes(n int64) ClientOption {
	return func(c *Client) { c.maxBody = n }
}

// NewClient creates a new web fetch client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:      common.NewSilentLogger(),
		maxBody:     DefaultMaxBodyBytes,
		userAgent:   defaultUserAgent,
		doiResolver: DefaultDOIResolver,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves url's body, rate-limited and capped at maxBody, returning
// the response's declared content type alongside the body.
func (c *Client) Fetch(ctx context.Context, target string) (string, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().Str("url", target).Msg("fetching target")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", nil, fmt.Errorf("fetch %q returned status %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/html"
	}
	return contentType, body, nil
}

// ResolveDOI resolves a bare DOI (e.g. "10.1234/abcd") to its landing-page
// URL by following the doi.org redirect without fetching the body.
func (c *Client) ResolveDOI(ctx context.Context, doi string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	doi = strings.TrimPrefix(strings.TrimSpace(doi), "doi:")
	resolveURL := c.doiResolver + "/" + doi

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, resolveURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create DOI request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	noRedirect := &http.Client{
		Timeout: c.httpClient.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := noRedirect.Do(req)
	if err != nil {
		return "", fmt.Errorf("DOI resolution request failed: %w", err)
	}
	defer resp.Body.Close()

	if loc := resp.Header.Get("Location"); loc != "" {
		return loc, nil
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("DOI %q did not resolve (status %d)", doi, resp.StatusCode)
	}
	return resolveURL, nil
}
