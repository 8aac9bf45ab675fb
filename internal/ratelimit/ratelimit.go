// Package ratelimit paces outbound requests so consecutive source fetches
// never look like a burst to anti-scraping defenses.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Pacer produces the pause inserted between consecutive source fetches.
type Pacer interface {
	// Pause blocks for one inter-source delay, or returns early with the
	// context's error if the caller is cancelled.
	Pause(ctx context.Context) error
}

// RandomPacer sleeps a uniformly random duration in [Min, Max] per pause.
// The randomization is deliberate: a fixed cadence is easier for scraped
// sources to fingerprint.
type RandomPacer struct {
	Min time.Duration
	Max time.Duration
}

// NewRandomPacer returns a pacer sleeping between min and max per pause.
func NewRandomPacer(min, max time.Duration) *RandomPacer {
	if max < min {
		max = min
	}
	return &RandomPacer{Min: min, Max: max}
}

// Pause implements Pacer.
func (p *RandomPacer) Pause(ctx context.Context) error {
	delay := p.Min
	if p.Max > p.Min {
		delay += rand.N(p.Max - p.Min + 1)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("pacer wait: %w", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

// NopPacer never waits. Used by tests and one-shot dry runs.
type NopPacer struct{}

func (NopPacer) Pause(ctx context.Context) error { return ctx.Err() }
