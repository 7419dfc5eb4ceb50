package upstream

import (
	"sync"
	"time"

	"github.com/wisbric/catalogcore/internal/telemetry"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

const (
	breakerWindow        = 60 * time.Second
	breakerThreshold     = 10
	breakerCooldown      = 30 * time.Second
)

// circuitBreaker is a three-state breaker over a rolling 60-second window
// of failure timestamps. All state transitions happen inside a single
// critical section; reads of the current state for the fast "is open"
// check also take the lock, since failures/opens are comparatively rare
// next to the volume of fetch() calls.
type circuitBreaker struct {
	mu       sync.Mutex
	state    breakerState
	failures []time.Time
	openedAt time.Time
	probeInFlight bool
}

func newCircuitBreaker() *circuitBreaker {
	return &circuitBreaker{state: breakerClosed}
}

// allow reports whether a call may proceed, and if so whether it is the
// single Half-Open probe (callers must report its outcome via recordProbe
// rather than record/recordSuccess).
func (b *circuitBreaker) allow() (proceed bool, isProbe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true, false
	case breakerOpen:
		if time.Since(b.openedAt) < breakerCooldown {
			return false, false
		}
		b.state = breakerHalfOpen
		b.probeInFlight = true
		telemetry.UpstreamBreakerState.Set(1)
		return true, true
	case breakerHalfOpen:
		if b.probeInFlight {
			return false, false
		}
		b.probeInFlight = true
		return true, true
	default:
		return false, false
	}
}

// recordSuccess clears the failure window on a Closed-state success. Probe
// outcomes must go through recordProbeResult instead.
func (b *circuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerClosed {
		b.failures = b.failures[:0]
	}
}

// recordFailure appends a failure timestamp, pruning the rolling window,
// and opens the breaker once the threshold is reached.
func (b *circuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.failures = pruneWindow(append(b.failures, now), now)
	if b.state == breakerClosed && len(b.failures) >= breakerThreshold {
		b.trip(now)
	}
}

// recordProbeResult resolves the single Half-Open probe: success closes
// the breaker and clears the window; failure re-opens it with a refreshed
// openedAt.
func (b *circuitBreaker) recordProbeResult(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probeInFlight = false
	if success {
		b.state = breakerClosed
		b.failures = b.failures[:0]
		telemetry.UpstreamBreakerState.Set(0)
		return
	}
	b.trip(time.Now())
}

func (b *circuitBreaker) trip(now time.Time) {
	b.state = breakerOpen
	b.openedAt = now
	telemetry.UpstreamBreakerState.Set(2)
}

func pruneWindow(failures []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-breakerWindow)
	kept := failures[:0]
	for _, t := range failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
