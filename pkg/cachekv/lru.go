package cachekv

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxEntries is the default capacity of an InProcessBackend.
const DefaultMaxEntries = 50_000

type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	element   *list.Element
}

// InProcessBackend is a bounded, in-memory KV backend with LRU bookkeeping
// and TTL expiry. When an insertion would exceed capacity it runs a
// two-stage eviction pass (expire past-TTL keys, then shed the 10% of
// entries with the shortest remaining TTL if still above 90% full) and
// retries the insert exactly once; if capacity is still exhausted the
// write is silently dropped.
type InProcessBackend struct {
	mu         sync.Mutex
	entries    map[string]*lruEntry
	order      *list.List // front = most recently used
	maxEntries int
	evictions  atomic.Int64
}

// NewInProcessBackend creates an in-process backend bounded at maxEntries.
// A non-positive value falls back to DefaultMaxEntries.
func NewInProcessBackend(maxEntries int) *InProcessBackend {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &InProcessBackend{
		entries:    make(map[string]*lruEntry, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

func (b *InProcessBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		b.removeLocked(e)
		return nil, false, nil
	}
	b.order.MoveToFront(e.element)
	// Copy out so callers can't mutate our backing array.
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (b *InProcessBackend) Set(_ context.Context, key string, value []byte, ttlSeconds int64) error {
	if ttlSeconds <= 0 {
		ttlSeconds = 1
	}
	expiresAt := time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	stored := make([]byte, len(value))
	copy(stored, value)

	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.entries[key]; ok {
		e.value = stored
		e.expiresAt = expiresAt
		b.order.MoveToFront(e.element)
		return nil
	}

	if len(b.entries) >= b.maxEntries {
		b.evictLocked()
		if len(b.entries) >= b.maxEntries {
			// Eviction couldn't make room; drop the write silently.
			return nil
		}
	}

	e := &lruEntry{key: key, value: stored, expiresAt: expiresAt}
	e.element = b.order.PushFront(e)
	b.entries[key] = e
	return nil
}

func (b *InProcessBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[key]; ok {
		b.removeLocked(e)
	}
	return nil
}

func (b *InProcessBackend) Evictions() int64 {
	return b.evictions.Load()
}

func (b *InProcessBackend) Close() error { return nil }

// Len reports the current entry count, for tests and diagnostics.
func (b *InProcessBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *InProcessBackend) removeLocked(e *lruEntry) {
	b.order.Remove(e.element)
	delete(b.entries, e.key)
}

// evictLocked runs the two-stage eviction pass described in §4.1: expire
// everything past its TTL, then — if still above 90% of capacity — shed
// the 10% of entries with the shortest remaining TTL. Must be called with
// b.mu held.
func (b *InProcessBackend) evictLocked() {
	now := time.Now()
	var expired []*lruEntry
	for _, e := range b.entries {
		if now.After(e.expiresAt) {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		b.removeLocked(e)
		b.evictions.Add(1)
	}

	threshold := (b.maxEntries * 9) / 10
	if len(b.entries) <= threshold {
		return
	}

	remaining := make([]*lruEntry, 0, len(b.entries))
	for _, e := range b.entries {
		remaining = append(remaining, e)
	}
	sort.Slice(remaining, func(i, j int) bool {
		return remaining[i].expiresAt.Before(remaining[j].expiresAt)
	})

	shed := len(remaining) / 10
	if shed == 0 && len(remaining) > 0 {
		shed = 1
	}
	for i := 0; i < shed && i < len(remaining); i++ {
		b.removeLocked(remaining[i])
		b.evictions.Add(1)
	}
}
