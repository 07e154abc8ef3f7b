// Package serp provides a rate-limited HTTP search-engine client. It backs
// dispatcher.SearchEngine for the engines named in config.toml's [engines]
// section (google, bing, duckduckgo, or any other configured endpoint);
// the dispatcher's per-engine circuit breaker handles the case where one
// engine's endpoint is unreachable without blocking the others.
package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/services/dispatcher"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 2 // requests per second, per engine
)

// result is the shape every configured engine endpoint is expected to
// return: a flat JSON array of hits.
type result struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Engine implements dispatcher.SearchEngine against a single configured
// search endpoint, queried as GET <baseURL>?q=<query>&num=<maxResults>.
type Engine struct {
	name       string
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *common.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithAPIKey sets the query-string API key parameter, if the engine's
// endpoint requires one.
func WithAPIKey(key string) EngineOption {
	return func(e *Engine) { e.apiKey = key }
}

// WithMaxResults caps how many hits are requested per query.
func WithMaxResults(n int) EngineOption {
	return func(e *Engine) { e.maxResults = n }
}

// WithRateLimit sets the requests-per-second limit for this engine.
func WithRateLimit(requestsPerSecond int) EngineOption {
	return func(e *Engine) { e.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond) }
}

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) { e.httpClient.Timeout = timeout }
}

// NewEngine creates a new search engine client. name identifies the engine
// for circuit-breaker labeling and must match an entry in
// config.toml's [engines] names list; baseURL is the endpoint queried.
func NewEngine(name, baseURL string, opts ...EngineOption) *Engine {
	e := &Engine{
		name:       name,
		baseURL:    baseURL,
		maxResults: 10,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine's configured name.
func (e *Engine) Name() string { return e.name }

// Search queries the engine's endpoint and returns its hits.
func (e *Engine) Search(ctx context.Context, query string) ([]dispatcher.SearchHit, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("num", fmt.Sprintf("%d", e.maxResults))
	if e.apiKey != "" {
		params.Set("key", e.apiKey)
	}

	reqURL := fmt.Sprintf("%s?%s", e.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	e.logger.Debug().Str("engine", e.name).Str("query", query).Msg("search request")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s search request failed: %w", e.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s search returned status %d", e.name, resp.StatusCode)
	}

	var results []result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode %s search response: %w", e.name, err)
	}

	hits := make([]dispatcher.SearchHit, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		hits = append(hits, dispatcher.SearchHit{URL: r.URL, Title: r.Title})
	}
	return hits, nil
}

var _ dispatcher.SearchEngine = (*Engine)(nil)
