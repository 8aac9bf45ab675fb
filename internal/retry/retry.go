// Package retry provides transient-failure retry with exponential backoff
// and jitter for source HTTP calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/twin-peaks-studio/career-os/internal/model"
)

// Do runs fn, retrying transient failures up to maxRetries additional
// attempts. baseDelay is the delay before the first retry, doubled on each
// subsequent one with ±30% jitter; an HTTPError carrying a Retry-After
// duration takes precedence over the computed backoff.
//
// A rate-limit signal is never retried here: the aggregator must surface it
// as a per-source outcome, not have it retried away.
func Do(ctx context.Context, logger *slog.Logger, maxRetries int, baseDelay time.Duration, fn func() error) error {
	err := fn()
	if err == nil || !isRetryable(err) {
		return err
	}

	lastErr := err
	for attempt := 1; attempt <= maxRetries; attempt++ {
		delay := backoffDelay(baseDelay, attempt, lastErr)

		logger.Warn("retrying after transient error",
			"attempt", attempt,
			"max_retries", maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		err = fn()
		if err == nil || !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter,
// honoring a server-provided Retry-After when present.
func backoffDelay(baseDelay time.Duration, attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable reports whether the error represents a transient failure worth
// retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation — never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// 429 must reach the aggregator as a rate-limit outcome.
	var rateErr *model.RateLimitError
	if errors.As(err, &rateErr) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		// 5xx — retryable. Other 4xx — not.
		return httpErr.StatusCode >= 500
	}

	// Non-HTTP errors (network, DNS, etc.) — retryable.
	return true
}
