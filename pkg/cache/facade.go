package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wisbric/catalogcore/internal/telemetry"
	"github.com/wisbric/catalogcore/pkg/cachekv"
)

// Entry is the full envelope returned by GetEntry.
type Entry struct {
	StoredAt time.Time
	TTL      time.Duration
	Stale    bool
	Raw      json.RawMessage // success payload, nil for negative entries
	ErrKind  ErrorKind       // empty for success entries
	ErrMsg   string
}

// WrapOptions configures Wrap. The zero value is the default: stale
// values are served while a background refresh runs.
type WrapOptions struct {
	// NoStale disables stale-while-revalidate for this call: a stale or
	// expired entry is treated as a miss and produced synchronously.
	NoStale bool
	// KeySpace labels metrics (e.g. "catalog", "meta"); purely cosmetic.
	KeySpace string
	// OnBackgroundRefresh, if set, is called synchronously by Wrap the
	// moment it decides producer will run later on a detached goroutine
	// (the stale-while-revalidate path) rather than not at all. Callers
	// that need to know whether producer will ever run at all (not just
	// by the time Wrap returns) use this to distinguish "will run later"
	// from "will never run" (a fresh hit, or a cached negative entry).
	OnBackgroundRefresh func()
}

// Facade is the resilient cache façade (C2). All logical keys are
// transparently prefixed with a process-wide version string so bumping it
// invalidates the whole cache without a delete pass.
type Facade struct {
	backend cachekv.Backend
	version string
	logger  *slog.Logger

	g singleflight.Group

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewFacade creates a cache façade over backend. version is prefixed to
// every physical key; bump it to invalidate the entire cache at once.
func NewFacade(backend cachekv.Backend, version string, logger *slog.Logger) *Facade {
	return &Facade{
		backend:  backend,
		version:  version,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

func (f *Facade) physicalKey(key string) string {
	return f.version + ":" + key
}

// getRawEnvelope fetches and decodes the envelope at key. A deserialization
// or structural failure self-heals: the key is deleted, a CACHE_CORRUPTED
// negative entry is written in its place, the corrupted counter is
// incremented, and the call returns (nil, false) so the caller proceeds as
// though the key were simply missing.
func (f *Facade) getRawEnvelope(ctx context.Context, key, keySpace string) (*envelope, bool) {
	pk := f.physicalKey(key)
	raw, ok, err := f.backend.Get(ctx, pk)
	if err != nil || !ok {
		return nil, false
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		f.logger.Warn("cache: corrupted envelope, self-healing", "key", key, "error", err)
		telemetry.CacheCorruptedTotal.WithLabelValues(keySpace).Inc()
		_ = f.backend.Delete(ctx, pk)
		_ = f.writeError(ctx, key, ErrorCacheCorrupted, "deserialization failure")
		return nil, false
	}
	return env, true
}

// GetEntry returns the full envelope at key, or nil if there is none
// (including one that just self-healed).
func (f *Facade) GetEntry(ctx context.Context, key string) *Entry {
	env, ok := f.getRawEnvelope(ctx, key, "")
	if !ok {
		return nil
	}
	return &Entry{
		StoredAt: env.StoredAt,
		TTL:      time.Duration(env.TTL) * time.Second,
		Stale:    env.freshness(time.Now()) == freshnessStale,
		Raw:      env.Data,
		ErrKind:  env.Kind,
		ErrMsg:   env.Message,
	}
}

// Get returns the unwrapped successful payload, or ok=false for a miss, a
// stale/expired entry, or a negative entry. Prefer Wrap for production
// code paths; Get is for callers that only want a best-effort peek.
func Get[T any](ctx context.Context, f *Facade, key string) (val T, ok bool) {
	env, present := f.getRawEnvelope(ctx, key, "")
	if !present || env.isError() || env.freshness(time.Now()) != freshnessFresh {
		return val, false
	}
	if err := json.Unmarshal(env.Data, &val); err != nil {
		return val, false
	}
	return val, true
}

// Set wraps value in a success envelope and writes it with the given
// freshness window. The underlying backend is asked to retain the entry
// well past ttl (2*ttl) so the stale-while-revalidate window is fully
// covered even after the entry goes stale.
func (f *Facade) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshaling value for %q: %w", key, err)
	}
	env := &envelope{
		Marker:   envelopeMarker,
		StoredAt: time.Now(),
		TTL:      int64(ttl.Seconds()),
		Data:     data,
	}
	return f.writeEnvelope(ctx, key, env, retentionSeconds(ttl))
}

// SetError writes a negative envelope with the taxonomy TTL for kind.
func (f *Facade) SetError(ctx context.Context, key string, kind ErrorKind, message string) error {
	return f.writeError(ctx, key, kind, message)
}

func (f *Facade) writeError(ctx context.Context, key string, kind ErrorKind, message string) error {
	ttl := TTLFor(kind)
	env := &envelope{
		Marker:   envelopeMarker,
		StoredAt: time.Now(),
		TTL:      int64(ttl.Seconds()),
		Kind:     kind,
		Message:  message,
	}
	return f.writeEnvelope(ctx, key, env, retentionSeconds(ttl))
}

func (f *Facade) writeEnvelope(ctx context.Context, key string, env *envelope, retainSeconds int64) error {
	raw, err := encodeEnvelope(env)
	if err != nil {
		return err
	}
	return f.backend.Set(ctx, f.physicalKey(key), raw, retainSeconds)
}

// Delete removes the entry at key.
func (f *Facade) Delete(ctx context.Context, key string) error {
	return f.backend.Delete(ctx, f.physicalKey(key))
}

func (f *Facade) markInFlight(key string) (leader bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.inFlight[key]; exists {
		return false
	}
	f.inFlight[key] = struct{}{}
	return true
}

func (f *Facade) clearInFlight(key string) {
	f.mu.Lock()
	delete(f.inFlight, key)
	f.mu.Unlock()
}

func (f *Facade) isInFlight(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.inFlight[key]
	return ok
}

// Wrap is the cache façade's primary entry point: cache-lookup-then-produce
// with coalescing, stale-while-revalidate, and error-typed negative
// caching.
func Wrap[T any](ctx context.Context, f *Facade, key string, producer func(context.Context) (T, error), ttl time.Duration, opts WrapOptions) (T, error) {
	var zero T

	env, present := f.getRawEnvelope(ctx, key, opts.KeySpace)
	if present {
		if env.isError() {
			telemetry.CacheCachedErrorsTotal.WithLabelValues(opts.KeySpace, string(env.Kind)).Inc()
			return zero, &CachedError{Kind: env.Kind, Message: env.Message}
		}

		fr := env.freshness(time.Now())
		if fr == freshnessFresh {
			var val T
			if err := json.Unmarshal(env.Data, &val); err == nil {
				telemetry.CacheHitsTotal.WithLabelValues(opts.KeySpace).Inc()
				return val, nil
			}
			f.logger.Warn("cache: fresh entry failed to decode into requested type, self-healing", "key", key)
			telemetry.CacheCorruptedTotal.WithLabelValues(opts.KeySpace).Inc()
			_ = f.Delete(ctx, key)
			_ = f.writeError(ctx, key, ErrorCacheCorrupted, "type mismatch on decode")
		} else if fr == freshnessStale && !opts.NoStale {
			var val T
			if err := json.Unmarshal(env.Data, &val); err == nil {
				telemetry.CacheStaleServedTotal.WithLabelValues(opts.KeySpace).Inc()
				if !f.isInFlight(key) {
					if opts.OnBackgroundRefresh != nil {
						opts.OnBackgroundRefresh()
					}
					scheduleRefresh(f, key, producer, ttl, opts)
				}
				return val, nil
			}
		}
	}

	telemetry.CacheMissesTotal.WithLabelValues(opts.KeySpace).Inc()
	return produce(ctx, f, key, producer, ttl, opts)
}

// produce runs producer exactly once across all concurrent callers for key,
// via singleflight.Group. Callers that arrive while a producer is already
// running for key are counted as deduplicated; every caller, leader
// included, receives the same classified outcome.
func produce[T any](ctx context.Context, f *Facade, key string, producer func(context.Context) (T, error), ttl time.Duration, opts WrapOptions) (T, error) {
	leader := f.markInFlight(key)
	if !leader {
		telemetry.CacheDeduplicatedTotal.WithLabelValues(opts.KeySpace).Inc()
	}
	telemetry.CacheInFlight.Inc()
	defer telemetry.CacheInFlight.Dec()

	type result struct {
		val T
		err error
	}

	v, err, _ := f.g.Do(key, func() (any, error) {
		// Whichever call's closure singleflight executes clears the key,
		// including on a producer panic, so a single bad producer never
		// wedges the key into permanent dedup limbo.
		defer f.clearInFlight(key)
		val, perr := producer(ctx)
		// The executing call classifies and writes the outcome once;
		// every other caller observes the same shared result.
		f.classifyAndStore(ctx, key, val, perr, ttl, opts)
		return result{val: val, err: perr}, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	r := v.(result)
	if r.err != nil {
		return r.val, r.err
	}
	return r.val, nil
}

// classifyAndStore writes the producer's outcome to the backend: a success
// envelope, an EMPTY_RESULT negative entry for a structurally empty
// payload, or a negative entry classified from the error.
func (f *Facade) classifyAndStore(ctx context.Context, key string, val any, err error, ttl time.Duration, opts WrapOptions) {
	if err != nil {
		kind := Classify(err)
		telemetry.CacheErrorsTotal.WithLabelValues(opts.KeySpace, string(kind)).Inc()
		if werr := f.writeError(ctx, key, kind, err.Error()); werr != nil {
			f.logger.Warn("cache: failed to write negative entry", "key", key, "error", werr)
		}
		return
	}

	if isEmptyViaJSON(val) {
		telemetry.CacheErrorsTotal.WithLabelValues(opts.KeySpace, string(ErrorEmptyResult)).Inc()
		if werr := f.writeError(ctx, key, ErrorEmptyResult, "producer returned an empty result"); werr != nil {
			f.logger.Warn("cache: failed to write empty-result entry", "key", key, "error", werr)
		}
		return
	}

	if werr := f.Set(ctx, key, val, ttl); werr != nil {
		f.logger.Warn("cache: failed to write success entry", "key", key, "error", werr)
	}
}

// isEmptyViaJSON detects an empty payload for an arbitrary generic T by
// round-tripping it through the same structural check used for decoded
// JSON values (nil, [], or {results: []}).
func isEmptyViaJSON(val any) bool {
	if val == nil {
		return true
	}
	b, err := json.Marshal(val)
	if err != nil {
		return false
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return false
	}
	return IsEmptyPayload(generic)
}

// scheduleRefresh launches a detached background refresh of key, reusing
// the same produce path (and therefore the same coalescing guarantees and
// negative-cache classification) as a synchronous miss.
func scheduleRefresh[T any](f *Facade, key string, producer func(context.Context) (T, error), ttl time.Duration, opts WrapOptions) {
	go func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := produce(refreshCtx, f, key, producer, ttl, opts); err != nil {
			f.logger.Debug("cache: background refresh failed", "key", key, "error", err)
		}
	}()
}
