package upstream

import (
	"context"
	"sync"
	"time"

	"github.com/wisbric/catalogcore/internal/telemetry"
)

const (
	bucketTickInterval = 100 * time.Millisecond
	bucketWaiterBound  = 500
	bucketWaiterTTL    = 10 * time.Second
)

// bucketWaiter is a single queued acquire() call. granted is set (under
// b.mu, before ch is closed) only when wakeWaitersLocked hands it a real
// token; drainWaiters closes ch without setting it. Since the write to
// granted happens-before the close, and a close happens-before any
// receive it unblocks, a waiter can always tell the two cases apart
// instead of racing two simultaneously-ready channels.
type bucketWaiter struct {
	ch      chan struct{}
	granted bool
}

// tokenBucket is an in-process rate limiter: capacity and refill rate equal
// the configured requests/second. Refill runs in discrete 100ms ticks
// rather than a continuous leak; each tick adds rate*0.1 tokens, so the
// count can be fractional, and a call needs at least one whole token.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens per second

	waiters chan *bucketWaiter
	done    chan struct{}
	closeOnce sync.Once
}

func newTokenBucket(ratePerSecond float64) *tokenBucket {
	if ratePerSecond <= 0 {
		ratePerSecond = 35
	}
	b := &tokenBucket{
		tokens:   ratePerSecond,
		capacity: ratePerSecond,
		rate:     ratePerSecond,
		waiters:  make(chan *bucketWaiter, bucketWaiterBound),
		done:     make(chan struct{}),
	}
	go b.refillLoop()
	return b
}

// refillLoop adds rate*tickSeconds tokens every tick, clamped at capacity,
// and wakes queued waiters as tokens become available.
func (b *tokenBucket) refillLoop() {
	ticker := time.NewTicker(bucketTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			b.drainWaiters()
			return
		case <-ticker.C:
			b.mu.Lock()
			b.tokens += b.rate * bucketTickInterval.Seconds()
			if b.tokens > b.capacity {
				b.tokens = b.capacity
			}
			b.wakeWaitersLocked()
			b.mu.Unlock()
		}
	}
}

// wakeWaitersLocked hands out available tokens to queued waiters in FIFO
// order. Must be called with b.mu held.
func (b *tokenBucket) wakeWaitersLocked() {
	for b.tokens >= 1 {
		select {
		case w := <-b.waiters:
			b.tokens--
			w.granted = true
			close(w.ch)
		default:
			return
		}
	}
}

func (b *tokenBucket) drainWaiters() {
	for {
		select {
		case w := <-b.waiters:
			close(w.ch)
		default:
			return
		}
	}
}

// acquire takes one token if immediately available, else enqueues a waiter
// bounded at 500 slots; a queued waiter times out after 10 seconds with
// ErrBucketTimeout. Shutdown delivers ErrBucketShutdown to every waiter.
func (b *tokenBucket) acquire(ctx context.Context) error {
	b.mu.Lock()
	if b.tokens >= 1 {
		b.tokens--
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	w := &bucketWaiter{ch: make(chan struct{})}
	select {
	case b.waiters <- w:
		telemetry.UpstreamBucketWaiters.Set(float64(len(b.waiters)))
	default:
		return ErrBucketFull
	}

	timer := time.NewTimer(bucketWaiterTTL)
	defer timer.Stop()

	select {
	case <-w.ch:
		telemetry.UpstreamBucketWaiters.Set(float64(len(b.waiters)))
		if !w.granted {
			return ErrBucketShutdown
		}
		return nil
	case <-timer.C:
		return ErrBucketTimeout
	case <-b.done:
		return ErrBucketShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shutdown stops the refill loop and releases every queued waiter with
// ErrBucketShutdown.
func (b *tokenBucket) shutdown() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}
