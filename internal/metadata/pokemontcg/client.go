// Package pokemontcg is the remote catalog fallback: a rate-limited client for
// the Pokémon TCG API (api.pokemontcg.io/v2).
package pokemontcg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://api.pokemontcg.io/v2"

	// Without an API key the service allows roughly one request per second.
	defaultRPS   = 1.0
	defaultBurst = 2

	defaultTimeout  = 10 * time.Second
	defaultPageSize = 20

	// All outbound calls share one limiter bucket.
	limiterKey = "pokemontcg"
)

// ResponseCache memoizes remote responses. Implemented by cache.LookupCache.
type ResponseCache interface {
	GetSearch(query string) ([]domain.ReferenceCard, bool)
	PutSearch(query string, cards []domain.ReferenceCard)
	GetSet(id string) (*domain.CardSet, bool)
	PutSet(id string, set *domain.CardSet)
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	PageSize          int
	Cache             ResponseCache
	Logger            *slog.Logger
}

// Client is a rate-limited catalog API client. It implements catalog.Remote.
type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	timeout  time.Duration
	pageSize int
	limiter  *ratelimit.KeyedRateLimiter
	cache    ResponseCache
	logger   *slog.Logger
}

// New creates a new catalog API client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	opts.Logger = logger.OrNop(opts.Logger)

	return &Client{
		// Per-call deadlines come from the context; this is a backstop.
		http:     &http.Client{Timeout: opts.Timeout + 5*time.Second},
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		timeout:  opts.Timeout,
		pageSize: opts.PageSize,
		limiter:  ratelimit.New(opts.RequestsPerSecond, opts.Burst),
		cache:    opts.Cache,
		logger:   opts.Logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Timeout returns the per-call deadline.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// doRequest executes an HTTP request with rate limiting and the per-call
// timeout.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Wait for rate limit
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CardID/1.0")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	c.logger.Debug("pokemontcg request", "path", path, "q", query.Get("q"))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
