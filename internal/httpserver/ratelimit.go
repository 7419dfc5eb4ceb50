package httpserver

import (
	"context"
	"encoding/binary"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/wisbric/catalogcore/pkg/cachekv"
)

// RateLimiter limits requests per client IP using a fixed window counter
// stored in a cachekv.Backend — the same INCR-and-expire shape the
// teacher used for login attempts, generalized to any cachekv.Backend
// (Redis in production, the in-process LRU as a degrade-safe fallback)
// rather than a hard Redis dependency.
type RateLimiter struct {
	backend    cachekv.Backend
	keyPrefix  string
	maxRequest int
	window     time.Duration
}

// NewRateLimiter creates a rate limiter bound to keyPrefix (so distinct
// routes — addon, auth, config writes — can carry independent limits
// against the same backend).
func NewRateLimiter(backend cachekv.Backend, keyPrefix string, maxRequest int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		backend:    backend,
		keyPrefix:  keyPrefix,
		maxRequest: maxRequest,
		window:     window,
	}
}

// Allow increments the counter for ip and reports whether the request is
// within budget. It is not perfectly atomic (read-modify-write against the
// backend) — an acceptable approximation for a rate limit, not a ledger.
func (rl *RateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	key := rl.keyPrefix + ":" + ip

	raw, found, err := rl.backend.Get(ctx, key)
	if err != nil {
		return false, err
	}

	// The stored value is the count plus the window's start, so rewriting
	// the counter never pushes the window's end further out.
	now := time.Now()
	count := int64(0)
	windowStart := now
	if found && len(raw) == 16 {
		count = int64(binary.BigEndian.Uint64(raw[:8]))
		windowStart = time.Unix(0, int64(binary.BigEndian.Uint64(raw[8:])))
		if now.Sub(windowStart) >= rl.window {
			count, windowStart = 0, now
		}
	}
	count++

	if count > int64(rl.maxRequest) {
		return false, nil
	}

	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], uint64(count))
	binary.BigEndian.PutUint64(buf[8:], uint64(windowStart.UnixNano()))
	ttl := int64(math.Ceil((rl.window - now.Sub(windowStart)).Seconds()))
	if err := rl.backend.Set(ctx, key, buf, ttl); err != nil {
		return false, err
	}
	return true, nil
}

// Middleware enforces the limit, responding 429 when exceeded. Requests
// whose IP can't be determined are let through rather than blocked.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := rl.Allow(r.Context(), ip)
		if err != nil {
			// Fail open: a backend hiccup shouldn't take down the route.
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			RespondError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := len(fwd); idx > 0 {
			for i, c := range fwd {
				if c == ',' {
					return fwd[:i]
				}
			}
			return fwd
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
