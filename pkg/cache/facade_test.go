package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wisbric/catalogcore/pkg/cachekv"
)

func testFacade() *Facade {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFacade(cachekv.NewInProcessBackend(1000), "v1", logger)
}

type statusedErr struct {
	code int
}

func (e *statusedErr) Error() string  { return "upstream error" }
func (e *statusedErr) StatusCode() int { return e.code }

func TestWrap_MissProducesAndCaches(t *testing.T) {
	f := testFacade()
	ctx := context.Background()
	var calls int32

	producer := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "fresh-value", nil
	}

	val, err := Wrap(ctx, f, "k1", producer, time.Minute, WrapOptions{})
	if err != nil || val != "fresh-value" {
		t.Fatalf("val=%q err=%v", val, err)
	}

	val2, err := Wrap(ctx, f, "k1", producer, time.Minute, WrapOptions{})
	if err != nil || val2 != "fresh-value" {
		t.Fatalf("val2=%q err=%v", val2, err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected producer called once, got %d", calls)
	}
}

func TestWrap_CoalescesConcurrentCallers(t *testing.T) {
	f := testFacade()
	ctx := context.Background()
	var calls int32
	release := make(chan struct{})

	producer := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "value", nil
	}

	const n = 50
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Wrap(ctx, f, "shared-key", producer, time.Minute, WrapOptions{})
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one producer invocation, got %d", calls)
	}
	for i, err := range errs {
		if err != nil || results[i] != "value" {
			t.Fatalf("caller %d: val=%q err=%v", i, results[i], err)
		}
	}
}

func TestWrap_StaleServedWithBackgroundRefresh(t *testing.T) {
	f := testFacade()
	ctx := context.Background()

	// Envelope TTLs are whole seconds, so the shortest usable window is 1s.
	if err := f.Set(ctx, "k", "original", time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// Wait past freshness but within the stale window (age <= 2*ttl).
	time.Sleep(1500 * time.Millisecond)

	var calls int32
	refreshDone := make(chan struct{})
	producer := func(context.Context) (string, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			close(refreshDone)
		}
		return "refreshed", nil
	}

	val, err := Wrap(ctx, f, "k", producer, time.Second, WrapOptions{})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if val != "original" {
		t.Fatalf("expected stale value served immediately, got %q", val)
	}

	select {
	case <-refreshDone:
	case <-time.After(time.Second):
		t.Fatal("expected background refresh to run")
	}
}

func TestWrap_NegativeEntryReturnsCachedError(t *testing.T) {
	f := testFacade()
	ctx := context.Background()

	if err := f.SetError(ctx, "missing", ErrorNotFound, "title not found upstream"); err != nil {
		t.Fatalf("SetError: %v", err)
	}

	producer := func(context.Context) (string, error) {
		t.Fatal("producer should not run for a fresh negative entry")
		return "", nil
	}

	_, err := Wrap(ctx, f, "missing", producer, time.Minute, WrapOptions{})
	ce, ok := AsCachedError(err)
	if !ok {
		t.Fatalf("expected CachedError, got %v", err)
	}
	if ce.Kind != ErrorNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", ce.Kind)
	}
}

func TestWrap_ProducerErrorClassifiedAndCached(t *testing.T) {
	f := testFacade()
	ctx := context.Background()
	var calls int32

	producer := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", &statusedErr{code: 404}
	}

	_, err := Wrap(ctx, f, "k", producer, time.Minute, WrapOptions{})
	if err == nil {
		t.Fatal("expected error from producer")
	}

	// Second call should hit the negative cache, not the producer again.
	_, err2 := Wrap(ctx, f, "k", producer, time.Minute, WrapOptions{})
	ce, ok := AsCachedError(err2)
	if !ok || ce.Kind != ErrorNotFound {
		t.Fatalf("expected cached NOT_FOUND, got %v", err2)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected producer invoked once, got %d", calls)
	}
}

func TestWrap_EmptyResultCachedAsNegative(t *testing.T) {
	f := testFacade()
	ctx := context.Background()

	producer := func(context.Context) ([]string, error) {
		return []string{}, nil
	}

	// The producing call returns the empty payload itself; the negative
	// entry it wrote is what the next call observes.
	if _, err := Wrap(ctx, f, "k", producer, time.Minute, WrapOptions{}); err != nil {
		t.Fatalf("expected the empty payload on the producing call, got %v", err)
	}

	_, err := Wrap(ctx, f, "k", producer, time.Minute, WrapOptions{})
	ce, ok := AsCachedError(err)
	if !ok || ce.Kind != ErrorEmptyResult {
		t.Fatalf("expected cached EMPTY_RESULT, got %v", err)
	}
}

func TestGetEntry_SelfHealsOnCorruption(t *testing.T) {
	backend := cachekv.NewInProcessBackend(100)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := NewFacade(backend, "v1", logger)
	ctx := context.Background()

	if err := backend.Set(ctx, "v1:broken", []byte("not json"), 60); err != nil {
		t.Fatalf("Set: %v", err)
	}

	entry := f.GetEntry(ctx, "broken")
	if entry != nil {
		t.Fatalf("expected nil entry for corrupted payload, got %+v", entry)
	}

	// The self-heal should have written a CACHE_CORRUPTED negative entry.
	entry2 := f.GetEntry(ctx, "broken")
	if entry2 == nil || entry2.ErrKind != ErrorCacheCorrupted {
		t.Fatalf("expected self-healed CACHE_CORRUPTED entry, got %+v", entry2)
	}
}

func TestDelete_RemovesEntry(t *testing.T) {
	f := testFacade()
	ctx := context.Background()
	_ = f.Set(ctx, "k", "v", time.Minute)

	if err := f.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := Get[string](ctx, f, "k"); ok {
		t.Fatal("expected key to be gone after delete")
	}
}

func TestClassify_PrefersStatusOverMessage(t *testing.T) {
	if got := Classify(&statusedErr{code: 429}); got != ErrorRateLimited {
		t.Fatalf("got %s, want RATE_LIMITED", got)
	}
	if got := Classify(&statusedErr{code: 503}); got != ErrorTemporary {
		t.Fatalf("got %s, want TEMPORARY_ERROR", got)
	}
	if got := Classify(errors.New("connection reset by peer: ECONNRESET")); got != ErrorTemporary {
		t.Fatalf("got %s, want TEMPORARY_ERROR", got)
	}
	if got := Classify(&statusedErr{code: 400}); got != ErrorPermanent {
		t.Fatalf("got %s, want PERMANENT_ERROR", got)
	}
}
