// Package cache implements the resilient cache façade (C2): stale-while-
// revalidate, error-typed negative caching, request coalescing, and
// self-healing over a pluggable pkg/cachekv backend.
package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// envelopeMarker lets the façade tell its own writes apart from foreign
// data that might land under the same key prefix.
const envelopeMarker = "catalogcore.cache.envelope/v1"

// ErrorKind is the negative-cache taxonomy.
type ErrorKind string

const (
	ErrorEmptyResult    ErrorKind = "EMPTY_RESULT"
	ErrorRateLimited    ErrorKind = "RATE_LIMITED"
	ErrorTemporary      ErrorKind = "TEMPORARY_ERROR"
	ErrorPermanent      ErrorKind = "PERMANENT_ERROR"
	ErrorNotFound       ErrorKind = "NOT_FOUND"
	ErrorCacheCorrupted ErrorKind = "CACHE_CORRUPTED"
)

// TTLFor returns the fixed negative-cache TTL for an error kind.
func TTLFor(kind ErrorKind) time.Duration {
	switch kind {
	case ErrorEmptyResult:
		return 60 * time.Second
	case ErrorRateLimited:
		return 900 * time.Second
	case ErrorTemporary:
		return 120 * time.Second
	case ErrorPermanent:
		return 1800 * time.Second
	case ErrorNotFound:
		return 3600 * time.Second
	case ErrorCacheCorrupted:
		return 60 * time.Second
	default:
		return 120 * time.Second
	}
}

// envelope is the metadata wrapper every value written through the façade
// carries. Either Data is populated (success) or Kind+Message (negative).
type envelope struct {
	Marker   string          `json:"_marker"`
	StoredAt time.Time       `json:"storedAt"`
	TTL      int64           `json:"ttl"` // seconds
	Data     json.RawMessage `json:"data,omitempty"`
	Kind     ErrorKind       `json:"errorKind,omitempty"`
	Message  string          `json:"errorMessage,omitempty"`
}

// freshness classifies an envelope relative to now.
type freshness int

const (
	freshnessFresh freshness = iota
	freshnessStale
	freshnessExpired
)

func (e *envelope) freshness(now time.Time) freshness {
	age := now.Sub(e.StoredAt)
	ttl := time.Duration(e.TTL) * time.Second
	switch {
	case age <= ttl:
		return freshnessFresh
	case age <= 2*ttl:
		return freshnessStale
	default:
		return freshnessExpired
	}
}

func (e *envelope) isError() bool {
	return e.Kind != ""
}

func (e *envelope) valid() bool {
	return e.Marker == envelopeMarker && !e.StoredAt.IsZero() && e.TTL > 0
}

func encodeEnvelope(e *envelope) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return b, nil
}

func decodeEnvelope(raw []byte) (*envelope, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decoding envelope: JSON parse failed: %w", err)
	}
	if !e.valid() {
		return nil, fmt.Errorf("decoding envelope: malformed envelope (missing storedAt/ttl)")
	}
	return &e, nil
}

// retentionSeconds computes the physical retention to request from the KV
// backend for a freshness window of ttl. The source once used ceil(1.3*ttl)
// and elsewhere ttl*2; the stale window requires at least 2*ttl of
// retention, so this always requests the larger of the two, making the
// 1.3 figure a historical no-op rather than an under-retention bug.
func retentionSeconds(ttl time.Duration) int64 {
	ttlSec := int64(ttl.Seconds())
	if ttlSec <= 0 {
		ttlSec = 1
	}
	legacy := int64(1.3*float64(ttlSec) + 0.999999) // ceil(1.3*ttl)
	required := 2 * ttlSec
	if legacy > required {
		return legacy
	}
	return required
}
