package aggregate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/twin-peaks-studio/career-os/internal/model"
	"github.com/twin-peaks-studio/career-os/internal/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAdapter returns canned postings or a canned error.
type stubAdapter struct {
	source   model.Source
	postings []model.RawPosting
	err      error
	calls    int
}

func (s *stubAdapter) Source() model.Source { return s.source }

func (s *stubAdapter) Fetch(_ context.Context, _ model.SearchParams) ([]model.RawPosting, error) {
	s.calls++
	return s.postings, s.err
}

func posting(source model.Source, company, title, location string, postedAt *time.Time) model.RawPosting {
	return model.RawPosting{
		ExternalID: fmt.Sprintf("%s-%s-%s", source, company, title),
		Source:     source,
		Title:      title,
		Company:    company,
		Location:   location,
		URL:        fmt.Sprintf("https://%s.example.com/%s", source, title),
		PostedAt:   postedAt,
	}
}

func newTestAggregator(opts Options, adapters ...model.SourceAdapter) *Aggregator {
	return New(adapters, ratelimit.NopPacer{}, opts, discardLogger())
}

func timePtr(t time.Time) *time.Time { return &t }

func TestAggregate_EmptyQuery(t *testing.T) {
	agg := newTestAggregator(Options{}, &stubAdapter{source: model.SourceGoogle})
	if _, err := agg.Aggregate(context.Background(), model.SearchParams{Query: "   "}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestAggregate_MergesDuplicatesAcrossSources(t *testing.T) {
	now := time.Now()
	google := &stubAdapter{source: model.SourceGoogle, postings: []model.RawPosting{
		posting(model.SourceGoogle, "Acme Inc.", "Senior SWE", "New York, NY", timePtr(now.Add(-48*time.Hour))),
	}}
	indeed := &stubAdapter{source: model.SourceIndeed, postings: []model.RawPosting{
		posting(model.SourceIndeed, "Acme", "Senior Software Engineer", "New York NY", timePtr(now.Add(-72*time.Hour))),
		posting(model.SourceIndeed, "Globex", "Data Engineer", "Denver, CO", timePtr(now.Add(-time.Hour))),
	}}

	agg := newTestAggregator(Options{}, google, indeed)
	result, err := agg.Aggregate(context.Background(), model.SearchParams{Query: "engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Jobs) != 2 {
		t.Fatalf("expected 2 unique jobs, got %d", len(result.Jobs))
	}

	// Today-first ordering puts Globex ahead of the merged Acme job.
	if result.Jobs[0].Company != "Globex" {
		t.Errorf("expected Globex first, got %q", result.Jobs[0].Company)
	}

	merged := result.Jobs[1]
	if len(merged.Sources) != 2 {
		t.Fatalf("expected merged job with 2 sources, got %v", merged.Sources)
	}
	if merged.Sources[0] != model.SourceGoogle || merged.Sources[1] != model.SourceIndeed {
		t.Errorf("sources must keep first-seen order, got %v", merged.Sources)
	}
	// Earliest date wins on merge.
	if got := time.Since(*merged.PostedAt); got < 71*time.Hour {
		t.Errorf("expected earliest postedAt kept, got %v ago", got)
	}

	wantOutcomes := []model.SourceOutcome{
		{Name: model.SourceGoogle, Count: 1},
		{Name: model.SourceIndeed, Count: 2},
	}
	for i, want := range wantOutcomes {
		if result.Sources[i] != want {
			t.Errorf("outcome[%d] = %+v, want %+v", i, result.Sources[i], want)
		}
	}
}

func TestAggregate_RateLimitRecordedNotFatal(t *testing.T) {
	now := time.Now()
	google := &stubAdapter{source: model.SourceGoogle, err: &model.RateLimitError{
		Source:     model.SourceGoogle,
		RetryAfter: time.Minute,
	}}
	indeed := &stubAdapter{source: model.SourceIndeed, postings: []model.RawPosting{
		posting(model.SourceIndeed, "Acme", "Engineer", "Austin, TX", timePtr(now)),
	}}

	agg := newTestAggregator(Options{}, google, indeed)
	result, err := agg.Aggregate(context.Background(), model.SearchParams{Query: "engineer"})
	if err != nil {
		t.Fatalf("a rate-limited source must not abort the run: %v", err)
	}

	if result.Sources[0].Err == "" {
		t.Error("expected rate limit recorded in outcome")
	}
	if result.Sources[1].Count != 1 {
		t.Errorf("remaining sources must still run, got %+v", result.Sources[1])
	}
	if len(result.Jobs) != 1 {
		t.Fatalf("expected 1 job from the healthy source, got %d", len(result.Jobs))
	}
}

func TestAggregate_AllSourcesFailStillShaped(t *testing.T) {
	google := &stubAdapter{source: model.SourceGoogle, err: &model.RateLimitError{Source: model.SourceGoogle}}
	indeed := &stubAdapter{source: model.SourceIndeed, err: &model.RateLimitError{Source: model.SourceIndeed}}

	agg := newTestAggregator(Options{}, google, indeed)
	result, err := agg.Aggregate(context.Background(), model.SearchParams{Query: "engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Jobs == nil || len(result.Jobs) != 0 {
		t.Errorf("expected empty non-nil job list, got %#v", result.Jobs)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(result.Sources))
	}
	for _, outcome := range result.Sources {
		if outcome.Err == "" {
			t.Errorf("expected error recorded for %s", outcome.Name)
		}
	}
}

func TestAggregate_TruncatesPerSource(t *testing.T) {
	now := time.Now()
	var postings []model.RawPosting
	for i := 0; i < 40; i++ {
		postings = append(postings, posting(model.SourceIndeed, fmt.Sprintf("Company %d", i), "Engineer", "Austin, TX", timePtr(now)))
	}
	indeed := &stubAdapter{source: model.SourceIndeed, postings: postings}

	agg := newTestAggregator(Options{MaxJobsPerSource: 5, PerPartitionLimit: 100, TotalLimit: 100}, indeed)
	result, err := agg.Aggregate(context.Background(), model.SearchParams{Query: "engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Jobs) != 5 {
		t.Fatalf("expected per-source truncation to 5, got %d", len(result.Jobs))
	}
	if result.Sources[0].Count != 5 {
		t.Errorf("outcome count must reflect the truncated batch, got %d", result.Sources[0].Count)
	}
}

func TestAggregate_WeekFilterKeepsUndated(t *testing.T) {
	now := time.Now()
	indeed := &stubAdapter{source: model.SourceIndeed, postings: []model.RawPosting{
		posting(model.SourceIndeed, "Fresh", "Engineer", "Austin, TX", timePtr(now.Add(-24*time.Hour))),
		posting(model.SourceIndeed, "Stale", "Engineer", "Austin, TX", timePtr(now.Add(-10*24*time.Hour))),
		posting(model.SourceIndeed, "Undated", "Engineer", "Austin, TX", nil),
	}}

	agg := newTestAggregator(Options{FilterToWeek: true}, indeed)
	result, err := agg.Aggregate(context.Background(), model.SearchParams{Query: "engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Jobs) != 2 {
		t.Fatalf("expected stale job dropped, got %d jobs", len(result.Jobs))
	}
	for _, job := range result.Jobs {
		if job.Company == "Stale" {
			t.Error("job older than a week must be dropped")
		}
	}
}

func TestAggregate_FairnessRebalance(t *testing.T) {
	now := time.Now()
	var linkedinPostings, indeedPostings []model.RawPosting
	for i := 0; i < 20; i++ {
		linkedinPostings = append(linkedinPostings, posting(
			model.SourceLinkedIn, fmt.Sprintf("LI Co %d", i), "Engineer", "Remote",
			timePtr(now.Add(-time.Duration(i)*time.Hour))))
	}
	for i := 0; i < 15; i++ {
		indeedPostings = append(indeedPostings, posting(
			model.SourceIndeed, fmt.Sprintf("IN Co %d", i), "Engineer", "Austin, TX",
			timePtr(now.Add(-time.Duration(i)*time.Hour))))
	}
	linkedin := &stubAdapter{source: model.SourceLinkedIn, postings: linkedinPostings}
	indeed := &stubAdapter{source: model.SourceIndeed, postings: indeedPostings}

	agg := newTestAggregator(DefaultOptions(), linkedin, indeed)
	result, err := agg.Aggregate(context.Background(), model.SearchParams{Query: "engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Jobs) > 20 {
		t.Fatalf("total cap exceeded: %d", len(result.Jobs))
	}
	var withLinkedIn, without int
	for _, job := range result.Jobs {
		if hasSource(job, model.SourceLinkedIn) {
			withLinkedIn++
		} else {
			without++
		}
	}
	if withLinkedIn > 10 {
		t.Errorf("fairness partition exceeded: %d linkedin jobs", withLinkedIn)
	}
	if without > 10 {
		t.Errorf("fairness partition exceeded: %d non-linkedin jobs", without)
	}
	if withLinkedIn != 10 || without != 10 {
		t.Errorf("expected both partitions full, got %d/%d", withLinkedIn, without)
	}
}

func TestAggregate_PacesBetweenSources(t *testing.T) {
	pacer := &countingPacer{}
	adapters := []model.SourceAdapter{
		&stubAdapter{source: model.SourceGoogle},
		&stubAdapter{source: model.SourceIndeed},
		&stubAdapter{source: model.SourceLinkedIn},
	}
	agg := New(adapters, pacer, Options{}, discardLogger())
	if _, err := agg.Aggregate(context.Background(), model.SearchParams{Query: "engineer"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One pause before each source after the first.
	if pacer.pauses != 2 {
		t.Errorf("expected 2 pauses for 3 sources, got %d", pacer.pauses)
	}
}

type countingPacer struct {
	pauses int
}

func (p *countingPacer) Pause(_ context.Context) error {
	p.pauses++
	return nil
}

func TestAggregate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := newTestAggregator(Options{}, &stubAdapter{source: model.SourceGoogle})
	if _, err := agg.Aggregate(ctx, model.SearchParams{Query: "engineer"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
