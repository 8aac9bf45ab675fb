package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/twin-peaks-studio/career-os/internal/model"
)

func linkedinCard(id int, title, company, location, datetime string) string {
	return fmt.Sprintf(`<li>
		<div class="base-card">
			<a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/%d?refId=abc&amp;trackingId=xyz"></a>
			<h3 class="base-search-card__title">%s</h3>
			<h4 class="base-search-card__subtitle"><a href="#">%s</a></h4>
			<span class="job-search-card__location">%s</span>
			<time datetime="%s"></time>
		</div>
	</li>`, id, title, company, location, datetime)
}

func TestLinkedInFetch_Success(t *testing.T) {
	page := "<ul>" +
		linkedinCard(4279001, "Staff Engineer", "Initech", "New York, NY", "2026-08-28") +
		linkedinCard(4279002, "Remote Backend Engineer", "Hooli", "United States", "2026-08-27") +
		`<li><div class="full-width-ad">sponsored</div></li>` +
		"</ul>"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("keywords") != "engineer" {
			t.Errorf("unexpected keywords %q", r.URL.Query().Get("keywords"))
		}
		if r.URL.Query().Get("f_TPR") != "r604800" {
			t.Errorf("expected past-week filter, got %q", r.URL.Query().Get("f_TPR"))
		}
		if !strings.Contains(r.Header.Get("User-Agent"), "Mozilla") {
			t.Errorf("expected browser User-Agent, got %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(page))
	}))
	defer srv.Close()

	a := NewLinkedInAdapter(rewriteClient(srv), discardLogger())
	jobs, err := a.Fetch(context.Background(), model.SearchParams{Query: "engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 postings (ad card skipped), got %d", len(jobs))
	}

	j := jobs[0]
	if j.Source != model.SourceLinkedIn {
		t.Errorf("unexpected source %q", j.Source)
	}
	if j.ExternalID != "4279001" {
		t.Errorf("expected numeric view ID, got %q", j.ExternalID)
	}
	if j.URL != "https://www.linkedin.com/jobs/view/4279001" {
		t.Errorf("tracking params should be stripped, got %q", j.URL)
	}
	if j.Title != "Staff Engineer" || j.Company != "Initech" || j.Location != "New York, NY" {
		t.Errorf("unexpected fields: %+v", j)
	}
	if j.PostedAt == nil || j.PostedAt.Format("2006-01-02") != "2026-08-28" {
		t.Errorf("unexpected postedAt: %v", j.PostedAt)
	}

	if !jobs[1].IsRemote {
		t.Error("expected remote from title")
	}
}

func TestLinkedInFetch_CapsResultCount(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<ul>")
	for i := 0; i < 40; i++ {
		sb.WriteString(linkedinCard(1000+i, "Engineer", "Acme", "Denver, CO", "2026-08-28"))
	}
	sb.WriteString("</ul>")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sb.String()))
	}))
	defer srv.Close()

	a := NewLinkedInAdapter(rewriteClient(srv), discardLogger())
	jobs, err := a.Fetch(context.Background(), model.SearchParams{Query: "engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != linkedinMaxCards {
		t.Fatalf("expected %d postings, got %d", linkedinMaxCards, len(jobs))
	}
}

func TestLinkedInFetch_RemoteLocationFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("f_WT") != "2" {
			t.Errorf("expected f_WT=2 for remote searches, got %q", r.URL.Query().Get("f_WT"))
		}
		if r.URL.Query().Get("f_JT") != "F" {
			t.Errorf("expected f_JT=F, got %q", r.URL.Query().Get("f_JT"))
		}
		w.Write([]byte("<ul></ul>"))
	}))
	defer srv.Close()

	a := NewLinkedInAdapter(rewriteClient(srv), discardLogger())
	jobs, err := a.Fetch(context.Background(), model.SearchParams{
		Query:          "engineer",
		Location:       "Remote",
		EmploymentType: model.EmploymentFullTime,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no postings, got %d", len(jobs))
	}
	for _, j := range jobs {
		if j.EmploymentType != model.EmploymentFullTime {
			t.Errorf("expected requested type echoed, got %q", j.EmploymentType)
		}
	}
}

func TestLinkedInFetch_HTTPErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := NewLinkedInAdapter(rewriteClient(srv), discardLogger())
	jobs, err := a.Fetch(context.Background(), model.SearchParams{Query: "x"})
	if err != nil {
		t.Fatalf("scrape failures must not surface as errors, got %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected empty result, got %d", len(jobs))
	}
}
