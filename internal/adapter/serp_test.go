package adapter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/twin-peaks-studio/career-os/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// rewriteClient returns a client that redirects every request to the test server.
func rewriteClient(srv *httptest.Server) *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			req.URL.Scheme = "http"
			req.URL.Host = srv.Listener.Addr().String()
			return http.DefaultTransport.RoundTrip(req)
		}),
	}
}

func TestSerpFetch_Success(t *testing.T) {
	payload := `{
		"jobs_results": [
			{
				"job_id": "abc123",
				"title": "Senior Software Engineer",
				"company_name": "Stripe Inc",
				"location": "San Francisco, CA",
				"description": "Build payments infrastructure.",
				"share_link": "https://example.com/jobs/abc123",
				"detected_extensions": {
					"posted_at": "3 days ago",
					"salary": "$180K–$220K",
					"schedule_type": "Full-time"
				}
			},
			{
				"job_id": "def456",
				"title": "Remote Platform Engineer",
				"company_name": "Globex",
				"location": "Anywhere",
				"related_links": [{"link": "https://example.com/jobs/def456"}],
				"detected_extensions": {"posted_at": "someday soon"}
			}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("engine") != "google_jobs" {
			t.Errorf("unexpected engine %q", r.URL.Query().Get("engine"))
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("missing api key")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := NewSerpAdapter("test-key", rewriteClient(srv), discardLogger())
	jobs, err := a.Fetch(context.Background(), model.SearchParams{Query: "software engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(jobs))
	}

	j := jobs[0]
	if j.ExternalID != "abc123" || j.Source != model.SourceGoogle {
		t.Errorf("unexpected identity: %+v", j)
	}
	if j.Company != "Stripe Inc" || j.Salary != "$180K–$220K" {
		t.Errorf("unexpected fields: %+v", j)
	}
	if j.EmploymentType != model.EmploymentFullTime {
		t.Errorf("expected full-time, got %q", j.EmploymentType)
	}
	if j.URL != "https://example.com/jobs/abc123" {
		t.Errorf("unexpected url %q", j.URL)
	}
	if j.PostedAt == nil {
		t.Fatal("expected postedAt from '3 days ago'")
	}
	if age := time.Since(*j.PostedAt); age < 71*time.Hour || age > 73*time.Hour {
		t.Errorf("postedAt should be ~3 days ago, got %v ago", age)
	}

	// Second job: related-link fallback, remote detection, unparsable date.
	j = jobs[1]
	if j.URL != "https://example.com/jobs/def456" {
		t.Errorf("expected related-link fallback, got %q", j.URL)
	}
	if !j.IsRemote {
		t.Error("expected remote from title")
	}
	if j.PostedAt != nil {
		t.Errorf("unparsable date must map to nil, got %v", j.PostedAt)
	}
}

func TestSerpFetch_MissingAPIKey(t *testing.T) {
	a := NewSerpAdapter("", http.DefaultClient, discardLogger())
	jobs, err := a.Fetch(context.Background(), model.SearchParams{Query: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no postings without a key, got %d", len(jobs))
	}
}

func TestSerpFetch_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := NewSerpAdapter("test-key", rewriteClient(srv), discardLogger())
	_, err := a.Fetch(context.Background(), model.SearchParams{Query: "x"})

	var rateErr *model.RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rateErr.Source != model.SourceGoogle {
		t.Errorf("unexpected source %q", rateErr.Source)
	}
	if rateErr.RetryAfter != 30*time.Second {
		t.Errorf("expected Retry-After 30s, got %v", rateErr.RetryAfter)
	}
}

func TestSerpFetch_ServerErrorReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	a := NewSerpAdapter("test-key", rewriteClient(srv), discardLogger())
	jobs, err := a.Fetch(context.Background(), model.SearchParams{Query: "x"})
	if err == nil {
		t.Fatal("expected an error, got nil — a silent failure is indistinguishable from a zero-result search")
	}
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected HTTPError with status 400, got %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no postings alongside the error, got %d", len(jobs))
	}
}

func TestSerpFetch_APIErrorReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "no results for this query"}`))
	}))
	defer srv.Close()

	a := NewSerpAdapter("test-key", rewriteClient(srv), discardLogger())
	jobs, err := a.Fetch(context.Background(), model.SearchParams{Query: "x"})
	if err == nil {
		t.Fatal("expected the API error message to surface, got nil")
	}
	if !strings.Contains(err.Error(), "no results for this query") {
		t.Errorf("expected the serpapi message preserved, got %q", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no postings alongside the error, got %d", len(jobs))
	}
}
