package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/twin-peaks-studio/career-os/internal/model"
)

const (
	linkedinSearchURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	linkedinMaxCards  = 25

	// A browser-ish User-Agent; the guest endpoint rejects obvious bots.
	linkedinUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// LinkedIn job URLs carry the job ID in a /view/<digits> path segment.
var linkedinJobIDRe = regexp.MustCompile(`/view/(\d+)`)

// LinkedInAdapter scrapes the public guest job-search results page. There is
// no structured feed for this source, so parsing is structural pattern
// matching tuned to the page's markup; it sits behind the same adapter
// interface as the structured sources so a future API replacement is a
// drop-in swap.
type LinkedInAdapter struct {
	client *http.Client
	logger *slog.Logger
}

// NewLinkedInAdapter creates an adapter for the LinkedIn guest search page.
func NewLinkedInAdapter(client *http.Client, logger *slog.Logger) *LinkedInAdapter {
	return &LinkedInAdapter{
		client: client,
		logger: logger,
	}
}

func (a *LinkedInAdapter) Source() model.Source { return model.SourceLinkedIn }

// Fetch scrapes job cards for the query. Non-200 responses and markup drift
// degrade to an empty (or partial) result with a logged warning — a card that
// doesn't match the expected structure is skipped, never the whole batch.
func (a *LinkedInAdapter) Fetch(ctx context.Context, params model.SearchParams) ([]model.RawPosting, error) {
	doc, err := a.fetchPage(ctx, params)
	if err != nil {
		a.logger.Warn("linkedin fetch failed", "error", err)
		return nil, nil
	}

	employmentType := linkedinEmploymentType(params.EmploymentType)

	var jobs []model.RawPosting
	doc.Find("li").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		posting, ok := a.parseCard(card, employmentType)
		if ok {
			jobs = append(jobs, posting)
		}
		return len(jobs) < linkedinMaxCards
	})

	return jobs, nil
}

// fetchPage downloads the guest search results page and parses its markup.
func (a *LinkedInAdapter) fetchPage(ctx context.Context, params model.SearchParams) (*goquery.Document, error) {
	q := url.Values{}
	q.Set("keywords", params.Query)
	if params.Location != "" {
		q.Set("location", params.Location)
	}
	q.Set("f_TPR", "r604800") // past week
	if strings.EqualFold(params.Location, "remote") {
		q.Set("f_WT", "2")
	}
	if jt := linkedinJobTypeFilter(params.EmploymentType); jt != "" {
		q.Set("f_JT", jt)
	}
	q.Set("start", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, linkedinSearchURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("linkedin fetch: %w", err)
	}
	req.Header.Set("User-Agent", linkedinUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("linkedin fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linkedin fetch: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("linkedin fetch: parse page: %w", err)
	}
	return doc, nil
}

// parseCard extracts one posting from a job card. A card missing its title
// or link doesn't match the expected markup and is skipped. The listing page
// never includes a description.
func (a *LinkedInAdapter) parseCard(card *goquery.Selection, employmentType string) (model.RawPosting, bool) {
	title := strings.TrimSpace(card.Find("h3.base-search-card__title").First().Text())
	href, _ := card.Find("a.base-card__full-link").First().Attr("href")
	if title == "" || href == "" {
		return model.RawPosting{}, false
	}

	// Strip tracking params and root relative links.
	jobURL := strings.SplitN(href, "?", 2)[0]
	if !strings.HasPrefix(jobURL, "http") {
		jobURL = "https://www.linkedin.com" + jobURL
	}

	company := strings.TrimSpace(card.Find("h4.base-search-card__subtitle a").First().Text())
	location := strings.TrimSpace(card.Find("span.job-search-card__location").First().Text())

	var postedAt *time.Time
	if datetime, ok := card.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, err := time.Parse("2006-01-02", datetime); err == nil {
			postedAt = &t
		}
	}

	return model.RawPosting{
		ExternalID:     linkedinExternalID(jobURL),
		Source:         model.SourceLinkedIn,
		Title:          title,
		Company:        company,
		Location:       location,
		IsRemote:       containsRemote(title) || containsRemote(location),
		EmploymentType: employmentType,
		URL:            jobURL,
		PostedAt:       postedAt,
	}, true
}

// linkedinExternalID extracts the numeric job ID from the URL path, falling
// back to the deterministic URL hash.
func linkedinExternalID(jobURL string) string {
	if m := linkedinJobIDRe.FindStringSubmatch(jobURL); m != nil {
		return m[1]
	}
	return hashURL(jobURL)
}

// linkedinJobTypeFilter maps our employment type onto LinkedIn's f_JT filter.
func linkedinJobTypeFilter(employmentType string) string {
	switch employmentType {
	case model.EmploymentFullTime:
		return "F"
	case model.EmploymentPartTime:
		return "P"
	case model.EmploymentContract:
		return "C"
	}
	return ""
}

// linkedinEmploymentType echoes the requested filter back onto postings;
// cards themselves don't state an employment type.
func linkedinEmploymentType(requested string) string {
	switch requested {
	case model.EmploymentFullTime, model.EmploymentPartTime, model.EmploymentContract:
		return requested
	}
	return ""
}
