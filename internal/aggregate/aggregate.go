// Package aggregate runs a search across every configured source and merges
// the results into one deduplicated, date-sorted, source-balanced list.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/twin-peaks-studio/career-os/internal/dedup"
	"github.com/twin-peaks-studio/career-os/internal/model"
	"github.com/twin-peaks-studio/career-os/internal/ratelimit"
)

// Options tune one aggregation run. Zero values fall back to the defaults
// applied by Aggregate.
type Options struct {
	// MaxJobsPerSource truncates each source's raw results before merging.
	MaxJobsPerSource int
	// FilterToWeek drops jobs whose posting date is known and older than
	// seven days. Jobs with no date are kept.
	FilterToWeek bool
	// FairnessSource partitions the final list: jobs seen by this source go
	// in one bucket, everything else in the other, each capped at
	// PerPartitionLimit so one high-volume source can't crowd out the rest.
	FairnessSource    model.Source
	PerPartitionLimit int
	// TotalLimit caps the final list after repartitioning.
	TotalLimit int
}

// DefaultOptions returns the standard run configuration.
func DefaultOptions() Options {
	return Options{
		MaxJobsPerSource:  25,
		FilterToWeek:      true,
		FairnessSource:    model.SourceLinkedIn,
		PerPartitionLimit: 10,
		TotalLimit:        20,
	}
}

// Aggregator fans a query out to its adapters in order, pacing between calls
// so the upstream boards see a polite request rhythm.
type Aggregator struct {
	adapters []model.SourceAdapter
	pacer    ratelimit.Pacer
	opts     Options
	logger   *slog.Logger
}

// New creates an aggregator over the given adapters. Adapters are queried
// sequentially in the order given.
func New(adapters []model.SourceAdapter, pacer ratelimit.Pacer, opts Options, logger *slog.Logger) *Aggregator {
	if opts.MaxJobsPerSource <= 0 {
		opts.MaxJobsPerSource = DefaultOptions().MaxJobsPerSource
	}
	if opts.PerPartitionLimit <= 0 {
		opts.PerPartitionLimit = DefaultOptions().PerPartitionLimit
	}
	if opts.TotalLimit <= 0 {
		opts.TotalLimit = DefaultOptions().TotalLimit
	}
	if opts.FairnessSource == "" {
		opts.FairnessSource = DefaultOptions().FairnessSource
	}
	if pacer == nil {
		pacer = ratelimit.NopPacer{}
	}
	return &Aggregator{
		adapters: adapters,
		pacer:    pacer,
		opts:     opts,
		logger:   logger,
	}
}

// Aggregate runs the full pipeline for one query: fetch per source, truncate,
// deduplicate, filter stale postings, sort, and rebalance. The result is
// always fully shaped; per-source failures land in the outcome list, and the
// only errors returned are an empty query or a cancelled context.
func (a *Aggregator) Aggregate(ctx context.Context, params model.SearchParams) (*model.AggregatedResult, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, fmt.Errorf("aggregate: query must not be empty")
	}
	if params.EmploymentType == "" {
		params.EmploymentType = model.EmploymentAll
	}

	result := &model.AggregatedResult{
		Jobs:      []model.Job{},
		Sources:   make([]model.SourceOutcome, 0, len(a.adapters)),
		FetchedAt: time.Now(),
	}

	var raws []model.RawPosting
	for i, adapter := range a.adapters {
		if i > 0 {
			// Spread calls out so consecutive sources never see a burst.
			if err := a.pacer.Pause(ctx); err != nil {
				return nil, err
			}
		}

		outcome := model.SourceOutcome{Name: adapter.Source()}
		postings, err := adapter.Fetch(ctx, params)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			a.logger.Warn("source failed", "source", adapter.Source(), "error", err)
			outcome.Err = err.Error()
		default:
			if len(postings) > a.opts.MaxJobsPerSource {
				postings = postings[:a.opts.MaxJobsPerSource]
			}
			outcome.Count = len(postings)
			raws = append(raws, postings...)
		}
		result.Sources = append(result.Sources, outcome)
	}

	jobs := dedup.Deduplicate(raws)
	a.logger.Info("aggregation merged",
		"query", params.Query,
		"raw", len(raws),
		"unique", len(jobs),
	)

	if a.opts.FilterToWeek {
		jobs = filterToWeek(jobs)
	}
	jobs = dedup.SortByDate(jobs)
	jobs = a.rebalance(jobs)

	if jobs != nil {
		result.Jobs = jobs
	}
	return result, nil
}

// filterToWeek keeps jobs posted within the last seven days. A job with no
// posting date is kept — an unknown date is not evidence of staleness.
func filterToWeek(jobs []model.Job) []model.Job {
	kept := make([]model.Job, 0, len(jobs))
	for _, job := range jobs {
		if dedup.PostedThisWeek(job.PostedAt) {
			kept = append(kept, job)
		}
	}
	return kept
}

// rebalance caps each partition so one source can't dominate: jobs seen by
// the fairness source in one bucket, everything else in the other. Input
// order (already date-sorted) decides which jobs survive each cap, and the
// combined list is re-sorted so the partitions interleave by date again.
func (a *Aggregator) rebalance(jobs []model.Job) []model.Job {
	var fair, rest []model.Job
	for _, job := range jobs {
		if hasSource(job, a.opts.FairnessSource) {
			if len(fair) < a.opts.PerPartitionLimit {
				fair = append(fair, job)
			}
		} else if len(rest) < a.opts.PerPartitionLimit {
			rest = append(rest, job)
		}
	}

	combined := dedup.SortByDate(append(fair, rest...))
	if len(combined) > a.opts.TotalLimit {
		combined = combined[:a.opts.TotalLimit]
	}
	return combined
}

func hasSource(job model.Job, source model.Source) bool {
	for _, s := range job.Sources {
		if s == source {
			return true
		}
	}
	return false
}
