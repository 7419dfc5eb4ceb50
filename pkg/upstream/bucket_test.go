package upstream

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucket_AcquireImmediateWhenTokensAvailable(t *testing.T) {
	b := newTokenBucket(10)
	defer b.shutdown()

	ctx := context.Background()
	if err := b.acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	b := newTokenBucket(10) // 10/sec, 1 token per 100ms tick
	defer b.shutdown()
	ctx := context.Background()

	b.mu.Lock()
	b.tokens = 0
	b.mu.Unlock()

	start := time.Now()
	if err := b.acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("expected refill within ~2 ticks, took %v", elapsed)
	}
}

func TestTokenBucket_ShutdownReleasesWaiters(t *testing.T) {
	b := newTokenBucket(1)
	ctx := context.Background()

	b.mu.Lock()
	b.tokens = 0
	b.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.acquire(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	b.shutdown()

	select {
	case err := <-errCh:
		if err != ErrBucketShutdown {
			t.Fatalf("expected ErrBucketShutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected waiter to be released on shutdown")
	}
}
