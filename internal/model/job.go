package model

import (
	"context"
	"fmt"
	"time"
)

// Source identifies one external job listing provider.
type Source string

const (
	SourceGoogle   Source = "google"   // Google Jobs via the SerpAPI search engine
	SourceIndeed   Source = "indeed"   // Indeed RSS feed
	SourceLinkedIn Source = "linkedin" // LinkedIn guest job-search page
)

// AllSources lists every known source in the default fetch order.
func AllSources() []Source {
	return []Source{SourceGoogle, SourceIndeed, SourceLinkedIn}
}

// ParseSource validates a source tag. Unknown tags are rejected rather than
// silently accepted, so stored records can never carry an unrecognized source.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceGoogle, SourceIndeed, SourceLinkedIn:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Employment type values used in SearchParams and on postings.
const (
	EmploymentFullTime = "full-time"
	EmploymentPartTime = "part-time"
	EmploymentContract = "contract"
	EmploymentAll      = "all"
)

// RawPosting is one listing exactly as reported by a single source, before
// identity resolution. Empty strings mean the source did not report the field.
type RawPosting struct {
	ExternalID     string // source-local identifier
	Source         Source
	Title          string
	Company        string
	Location       string
	IsRemote       bool
	EmploymentType string
	Description    string
	Salary         string // free text, e.g. "$120K–$150K"
	URL            string
	PostedAt       *time.Time // nil when the source gave no usable date
}

// Job is the unified record for one real-world posting, possibly reported by
// several sources. Sources preserves insertion order; URLs always has exactly
// one entry per source in Sources.
type Job struct {
	ID                 string // opaque, generated once
	DedupHash          string // identity of (company, title, location) post-normalization
	Title              string
	TitleNormalized    string
	Company            string
	CompanyNormalized  string
	Location           string
	LocationNormalized string
	IsRemote           bool
	EmploymentType     string
	Description        string
	Salary             string
	PostedAt           *time.Time // earliest known, only ever moves earlier
	FirstSeenAt        time.Time
	Sources            []Source
	URLs               map[Source]string
}

// PrimaryURL returns the URL reported by the first source that saw this job.
func (j Job) PrimaryURL() string {
	if len(j.Sources) == 0 {
		return ""
	}
	return j.URLs[j.Sources[0]]
}

// SearchParams is a caller-supplied query.
type SearchParams struct {
	Query          string // required
	Location       string
	EmploymentType string // one of the Employment* constants; "" is treated as "all"
}

// SourceOutcome records how one source fared during an aggregation run.
type SourceOutcome struct {
	Name  Source
	Count int
	Err   string // empty on success
}

// AggregatedResult is the complete output of one aggregation run. It is
// always fully shaped: even when every source fails, Jobs is empty and each
// source carries its error in Sources.
type AggregatedResult struct {
	Jobs      []Job
	Sources   []SourceOutcome
	FetchedAt time.Time
}

// TrackedSearch is a saved query the scheduler re-aggregates on an interval.
type TrackedSearch struct {
	ID             string
	Query          string
	Location       string
	EmploymentType string
	IsActive       bool
	CreatedAt      time.Time
	LastFetchedAt  *time.Time
}

// Params converts the tracked search into aggregation parameters.
func (s TrackedSearch) Params() SearchParams {
	return SearchParams{
		Query:          s.Query,
		Location:       s.Location,
		EmploymentType: s.EmploymentType,
	}
}

// SourceAdapter fetches raw postings for a query from one external source.
// A returned error is recorded per source by the aggregator and never aborts
// the run; a rate-limit signal keeps its RateLimitError type. The board
// scrapes degrade ordinary failures to an empty slice with a logged warning
// instead, since parse drift there is routine rather than actionable.
type SourceAdapter interface {
	Source() Source
	Fetch(ctx context.Context, params SearchParams) ([]RawPosting, error)
}

// JobStore persists unified jobs across aggregation runs, reconciling new
// results against previously stored dedup hashes.
type JobStore interface {
	// UpsertJobs merges the batch into the store: a job whose dedup hash is
	// already present has its sources and URLs unioned into the stored record;
	// unseen hashes are inserted. Every job is linked to searchID. Returns the
	// jobs that were newly inserted.
	UpsertJobs(jobs []Job, searchID string) ([]Job, error)
	ActiveSearches() ([]TrackedSearch, error)
	TouchSearch(id string, fetchedAt time.Time) error
}

// Notifier announces newly discovered jobs.
type Notifier interface {
	Notify(jobs []Job) error
}

// JobFilter decides whether a job is worth notifying about.
type JobFilter interface {
	Match(job Job) bool
}
