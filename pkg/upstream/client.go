// Package upstream implements the resilient upstream client (C3): URL
// safety validation, a token-bucket rate limiter, a three-state circuit
// breaker, an exponential-backoff retry loop, and cache-façade integration
// for every outbound call to the metadata provider.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/wisbric/catalogcore/pkg/cache"
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	APIKey       string
	AllowedHosts []string
	RPS          float64
	Timeout      time.Duration
}

// Client is the upstream metadata-provider client. A single Client is
// shared process-wide; its breaker and bucket guard every call regardless
// of which cache key is being populated.
type Client struct {
	http    *http.Client
	cache   *cache.Facade
	logger  *slog.Logger
	baseURL *url.URL
	apiKey  string
	allowed map[string]struct{}

	bucket  *tokenBucket
	breaker *circuitBreaker
}

// NewClient builds a Client. cacheFacade is the C2 façade every fetch is
// wrapped through.
func NewClient(opts Options, cacheFacade *cache.Facade, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("upstream: invalid base URL %q: %w", opts.BaseURL, err)
	}

	allowed := make(map[string]struct{}, len(opts.AllowedHosts))
	for _, h := range opts.AllowedHosts {
		allowed[h] = struct{}{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		cache:   cacheFacade,
		logger:  logger,
		baseURL: base,
		apiKey:  opts.APIKey,
		allowed: allowed,
		bucket:  newTokenBucket(opts.RPS),
		breaker: newCircuitBreaker(),
	}, nil
}

// Close stops the token bucket's refill loop and releases queued waiters.
func (c *Client) Close() {
	c.bucket.shutdown()
}

// Fetch performs a GET against endpoint (relative to BaseURL, or absolute)
// with the given query params, wrapping the result through the cache
// façade with ttl. T is the JSON shape the caller expects to decode.
func Fetch[T any](ctx context.Context, c *Client, cacheKey, endpoint string, params url.Values, ttl time.Duration) (T, error) {
	var zero T

	// The URL is validated before the breaker check and the cache lookup,
	// so an unsafe endpoint reaches neither.
	full, err := c.buildURL(endpoint, params)
	if err != nil {
		return zero, err
	}
	if _, err := ValidateURL(full, c.allowed); err != nil {
		return zero, err
	}

	proceed, isProbe := c.breaker.allow()
	if !proceed {
		return zero, ErrBreakerOpen
	}

	// probeWillResolve tracks whether something will eventually call
	// recordProbeResult for this probe: either producer runs (now or on
	// a background refresh goroutine) and resolves it with a real
	// outcome, or neither happens and the call below resolves it as a
	// cache-hit success instead. Without this, a probe consumed by a
	// fresh or cached-negative entry (producer never invoked) would
	// leave the breaker wedged in half-open forever.
	var probeWillResolve atomic.Bool
	producer := func(ctx context.Context) (T, error) {
		probeWillResolve.Store(true)
		val, err := c.doFetch(ctx, endpoint, params)
		if isProbe {
			c.breaker.recordProbeResult(err == nil)
		} else if err != nil {
			c.breaker.recordFailure()
		} else {
			c.breaker.recordSuccess()
		}
		return unmarshalAs[T](val, err)
	}

	opts := cache.WrapOptions{KeySpace: "upstream"}
	if isProbe {
		opts.OnBackgroundRefresh = func() { probeWillResolve.Store(true) }
	}

	val, err := cache.Wrap(ctx, c.cache, cacheKey, producer, ttl, opts)

	if isProbe && !probeWillResolve.Load() {
		c.breaker.recordProbeResult(true)
	}

	return val, err
}

func unmarshalAs[T any](raw []byte, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	var v T
	if uerr := json.Unmarshal(raw, &v); uerr != nil {
		return zero, fmt.Errorf("upstream: decoding response: %w", uerr)
	}
	return v, nil
}

// doFetch validates the URL, acquires a token, and runs the retry loop,
// returning the raw response body.
func (c *Client) doFetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	full, err := c.buildURL(endpoint, params)
	if err != nil {
		return nil, err
	}
	validated, err := ValidateURL(full, c.allowed)
	if err != nil {
		return nil, err
	}

	if err := c.bucket.acquire(ctx); err != nil {
		return nil, err
	}

	send := func(ctx context.Context) (*http.Response, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, validated.String(), nil)
		if err != nil {
			return nil, nil, fmt.Errorf("upstream: building request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("upstream: request to %s failed: %w", RedactURL(validated.String()), err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp, nil, fmt.Errorf("upstream: reading response body: %w", err)
		}
		return resp, body, nil
	}

	_, body, err := doWithRetry(ctx, send)
	if err != nil {
		c.logger.Warn("upstream: fetch failed", "endpoint", endpoint, "error", err)
		return nil, err
	}
	return body, nil
}

func (c *Client) buildURL(endpoint string, params url.Values) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("upstream: invalid endpoint %q: %w", endpoint, err)
	}
	// A relative endpoint, with or without a leading slash, is joined under
	// the base URL's path (e.g. "/3" + "movie/1" -> "/3/movie/1").
	resolved := ref
	if !ref.IsAbs() {
		resolved = c.baseURL.JoinPath(ref.EscapedPath())
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	resolved.RawQuery = params.Encode()
	return resolved.String(), nil
}
