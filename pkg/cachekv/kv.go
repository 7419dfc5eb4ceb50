// Package cachekv implements the flat key→opaque-blob store with
// per-entry TTL that sits under the cache façade (pkg/cache). Two
// interchangeable variants are provided: an in-process bounded LRU, and a
// Redis-backed networked store. Neither variant ever raises on a missing
// key, and both fail soft on backend trouble.
package cachekv

import "context"

// Backend is the contract every KV variant satisfies. Get never returns an
// error for a missing key — it returns (nil, false). Set requests
// at-least-ttlSeconds retention; backends may retain longer but never
// shorter.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int64) error
	Delete(ctx context.Context, key string) error

	// Evictions reports the number of entries evicted for capacity
	// reasons since startup (always 0 for backends without a bound).
	Evictions() int64

	// Close releases any held resources (connections, goroutines).
	Close() error
}
