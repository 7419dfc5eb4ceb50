package configresolver

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wisbric/catalogcore/internal/telemetry"
)

const (
	// DefaultCacheSize bounds the number of resolved configs held at once.
	DefaultCacheSize = 1000
	// DefaultCacheTTL is the absolute freshness window per cache entry.
	DefaultCacheTTL = 5 * time.Minute
)

type cacheEntry struct {
	userID    string
	cfg       *StoredConfig
	expiresAt time.Time
	element   *list.Element
}

// Resolver is the per-user configuration resolver (C4): an LRU+TTL cache
// over Store, with single-flight loading so concurrent misses for the
// same userId coalesce into one store read.
type Resolver struct {
	store         Store
	credentialKey []byte
	logger        *slog.Logger

	maxEntries int
	ttl        time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   *list.List

	g singleflight.Group
}

// Config configures a Resolver.
type Config struct {
	MaxEntries    int
	TTL           time.Duration
	CredentialKey []byte // 32 bytes, used for chacha20poly1305
}

// New creates a Resolver backed by store.
func New(store Store, cfg Config, logger *slog.Logger) *Resolver {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Resolver{
		store:         store,
		credentialKey: cfg.CredentialKey,
		logger:        logger,
		maxEntries:    maxEntries,
		ttl:           ttl,
		entries:       make(map[string]*cacheEntry),
		order:         list.New(),
	}
}

// Resolve returns the fully decrypted UserConfig for userID, loading and
// caching it on a miss. Concurrent misses for the same userID coalesce
// into a single store read via singleflight.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*UserConfig, error) {
	if stored, ok := r.lookup(userID); ok {
		return r.decrypt(stored)
	}

	v, err, _ := r.g.Do(userID, func() (any, error) {
		telemetry.ConfigResolverLoadsTotal.Inc()
		stored, err := r.store.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		r.put(userID, stored)
		return stored, nil
	})
	if err != nil {
		return nil, err
	}
	return r.decrypt(v.(*StoredConfig))
}

// Invalidate evicts userID from the resolved-config cache, forcing the
// next Resolve to hit the store again (e.g. after an owner-initiated
// update).
func (r *Resolver) Invalidate(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[userID]; ok {
		r.order.Remove(e.element)
		delete(r.entries, userID)
	}
}

func (r *Resolver) lookup(userID string) (*StoredConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		r.order.Remove(e.element)
		delete(r.entries, userID)
		return nil, false
	}
	r.order.MoveToFront(e.element)
	telemetry.ConfigResolverHitsTotal.Inc()
	return e.cfg, true
}

// put inserts or refreshes userID's cache entry, evicting the
// least-recently-used entry if at capacity.
func (r *Resolver) put(userID string, cfg *StoredConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[userID]; ok {
		e.cfg = cfg
		e.expiresAt = time.Now().Add(r.ttl)
		r.order.MoveToFront(e.element)
		return
	}

	if len(r.entries) >= r.maxEntries {
		oldest := r.order.Back()
		if oldest != nil {
			old := oldest.Value.(*cacheEntry)
			r.order.Remove(oldest)
			delete(r.entries, old.userID)
		}
	}

	e := &cacheEntry{userID: userID, cfg: cfg, expiresAt: time.Now().Add(r.ttl)}
	e.element = r.order.PushFront(e)
	r.entries[userID] = e
}

func (r *Resolver) decrypt(stored *StoredConfig) (*UserConfig, error) {
	apiKey, err := DecryptCredential(r.credentialKey, stored.EncryptedAPIKey)
	if err != nil {
		return nil, fmt.Errorf("configresolver: %w", err)
	}
	return &UserConfig{StoredConfig: *stored, APIKey: apiKey}, nil
}
