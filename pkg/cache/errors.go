package cache

import (
	"errors"
	"fmt"
	"regexp"
)

// CachedError is raised by Wrap when a negative envelope is hit, so callers
// can recognize "do not retry yet" without a new upstream call.
type CachedError struct {
	Kind    ErrorKind
	Message string
}

func (e *CachedError) Error() string {
	return fmt.Sprintf("cached error [%s]: %s", e.Kind, e.Message)
}

// CorruptedError names a cache entry that failed to deserialize. The
// façade's self-healing path does not return it: the key is wiped, a
// CACHE_CORRUPTED entry is written, and the producer still runs.
type CorruptedError struct {
	Key string
}

func (e *CorruptedError) Error() string {
	return fmt.Sprintf("cache entry corrupted: %s", e.Key)
}

// AsCachedError reports whether err is (or wraps) a CachedError.
func AsCachedError(err error) (*CachedError, bool) {
	var ce *CachedError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

var (
	reRateLimited = regexp.MustCompile(`(?i)rate.?limit|429`)
	reNotFound    = regexp.MustCompile(`(?i)not found|404`)
	re5xx         = regexp.MustCompile(`\b5\d{2}\b`)
)

// StatusedError is implemented by upstream errors that carry an HTTP
// status code, letting Classify prefer structured status over message
// sniffing.
type StatusedError interface {
	error
	StatusCode() int
}

// ConnError is implemented by transport-layer failures (connection reset,
// refused, timeout) so Classify can route them to TEMPORARY_ERROR without
// string matching.
type ConnError interface {
	error
	Temporary() bool
}

// Classify maps an error (optionally carrying an HTTP status) onto the
// negative-cache taxonomy. Only the narrowed \b5\d{2}\b regex is used for
// message-based 5xx detection; a looser strings.Contains(msg, "5")
// fast-path would also match unrelated digits and is deliberately not
// used.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorTemporary
	}

	status := 0
	var se StatusedError
	if errors.As(err, &se) {
		status = se.StatusCode()
	}
	msg := err.Error()

	switch {
	case status == 429 || reRateLimited.MatchString(msg):
		return ErrorRateLimited
	case status == 404 || reNotFound.MatchString(msg):
		return ErrorNotFound
	case status >= 500 && status <= 599:
		return ErrorTemporary
	case re5xx.MatchString(msg):
		return ErrorTemporary
	case isConnFault(err, msg):
		return ErrorTemporary
	case status >= 400 && status <= 499:
		return ErrorPermanent
	default:
		return ErrorTemporary
	}
}

func isConnFault(err error, msg string) bool {
	var ce ConnError
	if errors.As(err, &ce) && ce.Temporary() {
		return true
	}
	return reConnFault.MatchString(msg)
}

var reConnFault = regexp.MustCompile(`ECONNREFUSED|ECONNRESET|ETIMEDOUT`)

// IsEmptyPayload classifies a successful payload as "empty": null, an
// empty list, or a {results: []} shape. T is any decoded value; callers
// pass the already-unmarshalled payload.
func IsEmptyPayload(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case map[string]any:
		results, ok := t["results"]
		if !ok {
			return false
		}
		arr, ok := results.([]any)
		return ok && len(arr) == 0
	default:
		return false
	}
}
