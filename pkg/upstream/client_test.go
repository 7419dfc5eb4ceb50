package upstream

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/wisbric/catalogcore/pkg/cache"
	"github.com/wisbric/catalogcore/pkg/cachekv"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	facade := cache.NewFacade(cachekv.NewInProcessBackend(1000), "v1", logger)
	c, err := NewClient(Options{
		BaseURL:      "https://api.example.org/3/",
		AllowedHosts: []string{"api.example.org"},
		RPS:          100,
		Timeout:      time.Second,
	}, facade, logger)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

// A probe consumed by a fresh cache hit must still resolve: otherwise the
// breaker wedges in half-open forever, since the producer that would have
// called recordProbeResult is never invoked.
func TestFetch_ProbeResolvedByCacheHitDoesNotWedgeBreaker(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	if _, ok := cache.Get[map[string]any](ctx, c.cache, "warm-key"); ok {
		t.Fatal("sanity: expected no pre-existing entry before Set")
	}
	if err := c.cache.Set(ctx, "warm-key", map[string]any{"ok": true}, time.Minute); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	c.breaker.state = breakerOpen
	c.breaker.openedAt = time.Now().Add(-breakerCooldown - time.Second)

	_, err := Fetch[map[string]any](ctx, c, "warm-key", "movie/1", nil, time.Minute)
	if err != nil {
		t.Fatalf("expected the fresh cache hit to satisfy the probe, got %v", err)
	}

	if c.breaker.probeInFlight {
		t.Fatal("expected the probe slot to be released once the cache hit resolved it")
	}
	if c.breaker.state != breakerClosed {
		t.Fatalf("expected the breaker to close on a successful probe, got %v", c.breaker.state)
	}

	proceed, isProbe := c.breaker.allow()
	if !proceed || isProbe {
		t.Fatal("expected ordinary closed-state pass-through for the next call")
	}
}
