package model

import (
	"fmt"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// RateLimitError signals an HTTP 429 from a source. It is kept distinct from
// HTTPError because the aggregator must record "rate limited" in the
// per-source outcome rather than treating it like an empty result.
type RateLimitError struct {
	Source     Source
	RetryAfter time.Duration // zero if the source gave no Retry-After
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Source)
}
