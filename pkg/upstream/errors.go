package upstream

import (
	"errors"
	"strconv"
)

var (
	// ErrInsecureScheme is returned when a fetch URL is not HTTPS.
	ErrInsecureScheme = errors.New("upstream: URL scheme must be https")
	// ErrUserinfoPresent is returned when a fetch URL embeds userinfo.
	ErrUserinfoPresent = errors.New("upstream: URL must not embed userinfo")
	// ErrHostNotAllowed is returned when a fetch URL's host is not on the
	// configured allowlist.
	ErrHostNotAllowed = errors.New("upstream: host not on allowlist")

	// ErrBreakerOpen is returned by fetch while the circuit breaker is open.
	ErrBreakerOpen = errors.New("upstream: circuit breaker open")

	// ErrBucketTimeout is returned when a token-bucket waiter times out
	// before acquiring a token.
	ErrBucketTimeout = errors.New("upstream: token bucket wait timed out")
	// ErrBucketFull is returned when the waiter queue is already at its
	// bound and cannot accept another waiter.
	ErrBucketFull = errors.New("upstream: token bucket waiter queue full")
	// ErrBucketShutdown is returned to every queued waiter when the bucket
	// is shut down.
	ErrBucketShutdown = errors.New("upstream: token bucket shut down")

	// ErrNonRetryable marks a 4xx (other than 429) response that aborts the
	// retry loop immediately.
	ErrNonRetryable = errors.New("upstream: non-retryable response")
)

// HTTPStatusError carries the upstream HTTP status code so pkg/cache's
// Classify can route it without string matching. It satisfies
// cache.StatusedError.
type HTTPStatusError struct {
	Status int
	URL    string
	Body   string
}

func (e *HTTPStatusError) Error() string {
	return "upstream: HTTP " + strconv.Itoa(e.Status) + " from " + e.URL
}

func (e *HTTPStatusError) StatusCode() int { return e.Status }
