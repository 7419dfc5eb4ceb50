package upstream

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/wisbric/catalogcore/internal/telemetry"
)

const (
	retryMaxAttempts  = 3
	retryBaseInterval = 300 * time.Millisecond
	retryAfterCap     = 10 * time.Second
)

// doWithRetry runs send until it succeeds, exhausts retryMaxAttempts
// additional attempts, or hits a non-retryable error. Network failures and
// HTTP 429/5xx are retried with exponential backoff (300ms * 2^attempt); a
// 429 additionally sleeps for its Retry-After header, capped at 10s,
// before the next attempt. Any other 4xx aborts immediately via
// backoff.Permanent so the retry loop never spins on a client error.
func doWithRetry(ctx context.Context, send func(context.Context) (*http.Response, []byte, error)) (*http.Response, []byte, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryBaseInterval
	eb.Multiplier = 2
	eb.RandomizationFactor = 0

	type result struct {
		resp *http.Response
		body []byte
	}

	attempt := 0
	op := func() (result, error) {
		if attempt > 0 {
			telemetry.UpstreamRetriesTotal.Inc()
		}
		attempt++

		resp, body, err := send(ctx)
		if err != nil {
			return result{}, err // transport failure: retryable
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if wait := retryAfterDelay(resp); wait > 0 {
				sleep(ctx, wait)
			}
			return result{}, &HTTPStatusError{Status: resp.StatusCode, URL: RedactURL(resp.Request.URL.String())}
		case resp.StatusCode >= 500 && resp.StatusCode <= 599:
			return result{}, &HTTPStatusError{Status: resp.StatusCode, URL: RedactURL(resp.Request.URL.String())}
		case resp.StatusCode >= 400 && resp.StatusCode <= 499:
			return result{}, backoff.Permanent(&HTTPStatusError{Status: resp.StatusCode, URL: RedactURL(resp.Request.URL.String()), Body: string(body)})
		default:
			return result{resp: resp, body: body}, nil
		}
	}

	r, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(retryMaxAttempts+1),
	)
	if err != nil {
		return nil, nil, err
	}
	return r.resp, r.body, nil
}

// retryAfterDelay parses the Retry-After header (seconds or HTTP-date) and
// caps it at retryAfterCap.
func retryAfterDelay(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		d := time.Duration(secs) * time.Second
		if d > retryAfterCap {
			d = retryAfterCap
		}
		return d
	}
	if when, err := http.ParseTime(h); err == nil {
		d := time.Until(when)
		if d < 0 {
			return 0
		}
		if d > retryAfterCap {
			d = retryAfterCap
		}
		return d
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
