// Package scheduler re-runs every tracked search on an interval and pushes
// newly discovered jobs through the notification pipeline.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/twin-peaks-studio/career-os/internal/aggregate"
	"github.com/twin-peaks-studio/career-os/internal/model"
)

// Scheduler owns the main loop: ticks on an interval and aggregates each
// active tracked search sequentially.
type Scheduler struct {
	aggregator *aggregate.Aggregator
	store      model.JobStore
	filter     model.JobFilter
	notifier   model.Notifier
	interval   time.Duration
	logger     *slog.Logger
}

// NewScheduler creates a scheduler that refreshes all active searches at the
// given interval.
func NewScheduler(
	aggregator *aggregate.Aggregator,
	store model.JobStore,
	filter model.JobFilter,
	notifier model.Notifier,
	interval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		aggregator: aggregator,
		store:      store,
		filter:     filter,
		notifier:   notifier,
		interval:   interval,
		logger:     logger,
	}
}

// Run starts the fetch loop. It runs one immediate cycle, then ticks on the
// configured interval. It returns nil when ctx is cancelled (graceful
// shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	// Run one immediate cycle.
	s.runAll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
			s.runAll(ctx)
		}
	}
}

// runAll refreshes each active search sequentially with a small pause between
// them.
func (s *Scheduler) runAll(ctx context.Context) {
	searches, err := s.store.ActiveSearches()
	if err != nil {
		s.logger.Error("listing active searches failed", "error", err)
		return
	}
	if len(searches) == 0 {
		s.logger.Info("no active searches to refresh")
		return
	}

	for i, search := range searches {
		if ctx.Err() != nil {
			return
		}

		if err := s.runOne(ctx, search); err != nil {
			s.logger.Error("search refresh failed",
				"search", search.Query,
				"error", err,
			)
		}

		// Small sleep between searches to be polite, except after the last one.
		if i < len(searches)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(1 * time.Second):
			}
		}
	}
}

// runOne aggregates one search, persists the results, and notifies about new
// jobs that pass the filter.
func (s *Scheduler) runOne(ctx context.Context, search model.TrackedSearch) error {
	result, err := s.aggregator.Aggregate(ctx, search.Params())
	if err != nil {
		return err
	}

	newJobs, err := s.store.UpsertJobs(result.Jobs, search.ID)
	if err != nil {
		return err
	}

	matched := make([]model.Job, 0, len(newJobs))
	for _, job := range newJobs {
		if s.filter.Match(job) {
			matched = append(matched, job)
		}
	}

	s.logger.Info("search refreshed",
		"search", search.Query,
		"fetched", len(result.Jobs),
		"new", len(newJobs),
		"matched", len(matched),
	)

	if len(matched) > 0 {
		if err := s.notifier.Notify(matched); err != nil {
			return err
		}
	}

	return s.store.TouchSearch(search.ID, result.FetchedAt)
}
