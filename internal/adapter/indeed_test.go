package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/twin-peaks-studio/career-os/internal/model"
)

const indeedFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>software engineer jobs</title>
	<item>
		<title>Senior Software Engineer - Acme Corp</title>
		<link>https://www.indeed.com/viewjob?jk=a1b2c3d4e5f6&amp;from=rss</link>
		<description>Location: Austin, TX&lt;br&gt;Build distributed systems. Remote friendly.</description>
		<pubDate>Mon, 24 Aug 2026 09:00:00 GMT</pubDate>
	</item>
	<item>
		<title>Data Engineer - Platform - Globex</title>
		<link>https://www.indeed.com/rc/clk?unknown=1</link>
		<description>No location here.</description>
	</item>
</channel>
</rss>`

func TestIndeedFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "software engineer" {
			t.Errorf("unexpected query %q", r.URL.Query().Get("q"))
		}
		if r.URL.Query().Get("fromage") != "7" {
			t.Errorf("expected fromage=7, got %q", r.URL.Query().Get("fromage"))
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(indeedFeedXML))
	}))
	defer srv.Close()

	a := NewIndeedAdapter(rewriteClient(srv), discardLogger())
	jobs, err := a.Fetch(context.Background(), model.SearchParams{Query: "software engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(jobs))
	}

	j := jobs[0]
	if j.Source != model.SourceIndeed {
		t.Errorf("unexpected source %q", j.Source)
	}
	if j.ExternalID != "a1b2c3d4e5f6" {
		t.Errorf("expected jk ID, got %q", j.ExternalID)
	}
	if j.Title != "Senior Software Engineer" || j.Company != "Acme Corp" {
		t.Errorf("unexpected title split: %q / %q", j.Title, j.Company)
	}
	if j.Location != "Austin, TX" {
		t.Errorf("unexpected location %q", j.Location)
	}
	if !j.IsRemote {
		t.Error("expected remote from snippet")
	}
	if j.PostedAt == nil {
		t.Error("expected postedAt from pubDate")
	}

	// Second item: multi-separator title, no jk param, no location, no date.
	j = jobs[1]
	if j.Title != "Data Engineer - Platform" || j.Company != "Globex" {
		t.Errorf("expected last-separator split, got %q / %q", j.Title, j.Company)
	}
	if j.ExternalID != hashURL("https://www.indeed.com/rc/clk?unknown=1") {
		t.Errorf("expected hash fallback ID, got %q", j.ExternalID)
	}
	if j.Location != "" {
		t.Errorf("expected empty location, got %q", j.Location)
	}
	if j.PostedAt != nil {
		t.Errorf("expected nil postedAt, got %v", j.PostedAt)
	}
}

func TestIndeedFetch_HTTPErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	a := NewIndeedAdapter(rewriteClient(srv), discardLogger())
	jobs, err := a.Fetch(context.Background(), model.SearchParams{Query: "x"})
	if err != nil {
		t.Fatalf("ordinary failures must not surface as errors, got %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected empty result, got %d", len(jobs))
	}
}

func TestIndeedFetch_MalformedFeedDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a feed</html>"))
	}))
	defer srv.Close()

	a := NewIndeedAdapter(rewriteClient(srv), discardLogger())
	jobs, err := a.Fetch(context.Background(), model.SearchParams{Query: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected empty result, got %d", len(jobs))
	}
}

func TestSplitFeedTitle(t *testing.T) {
	tests := []struct {
		name      string
		feedTitle string
		title     string
		company   string
	}{
		{"simple", "Engineer - Acme", "Engineer", "Acme"},
		{"multiple separators", "Engineer - Backend - Acme", "Engineer - Backend", "Acme"},
		{"no separator", "Engineer", "Engineer", ""},
		{"hyphen without spaces is not a separator", "Front-End Engineer", "Front-End Engineer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, company := splitFeedTitle(tt.feedTitle)
			if title != tt.title || company != tt.company {
				t.Errorf("splitFeedTitle(%q) = %q, %q; want %q, %q",
					tt.feedTitle, title, company, tt.title, tt.company)
			}
		})
	}
}
