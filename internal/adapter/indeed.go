package adapter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/twin-peaks-studio/career-os/internal/model"
	"github.com/twin-peaks-studio/career-os/internal/retry"
)

const indeedBaseURL = "https://www.indeed.com/rss"

var (
	// Indeed job URLs carry the job ID in a "jk=" query parameter.
	indeedJobIDRe = regexp.MustCompile(`(?i)jk=([a-f0-9]+)`)
	// Location in the snippet, "Location: City, ST" or bare "City, ST".
	indeedLocationRe = regexp.MustCompile(`(?:Location:\s*)?([A-Za-z\s]+,\s*[A-Z]{2})`)
)

// IndeedAdapter fetches job listings from the Indeed RSS feed.
type IndeedAdapter struct {
	client *http.Client
	logger *slog.Logger
}

// NewIndeedAdapter creates an adapter for the Indeed RSS feed.
func NewIndeedAdapter(client *http.Client, logger *slog.Logger) *IndeedAdapter {
	return &IndeedAdapter{
		client: client,
		logger: logger,
	}
}

func (a *IndeedAdapter) Source() model.Source { return model.SourceIndeed }

// Fetch retrieves and parses the feed for the query. Network and parse
// failures degrade to an empty result with a logged warning — one board's
// outage must not abort the run.
func (a *IndeedAdapter) Fetch(ctx context.Context, params model.SearchParams) ([]model.RawPosting, error) {
	var feed *gofeed.Feed
	err := retry.Do(ctx, a.logger, 2, 2*time.Second, func() error {
		var fetchErr error
		feed, fetchErr = a.fetchFeed(ctx, params)
		return fetchErr
	})
	if err != nil {
		a.logger.Warn("indeed fetch failed", "error", err)
		return nil, nil
	}

	jobs := make([]model.RawPosting, 0, len(feed.Items))
	for _, item := range feed.Items {
		jobs = append(jobs, a.itemToPosting(item))
	}
	return jobs, nil
}

// fetchFeed downloads and parses the RSS feed.
func (a *IndeedAdapter) fetchFeed(ctx context.Context, params model.SearchParams) (*gofeed.Feed, error) {
	q := url.Values{}
	q.Set("q", params.Query)
	q.Set("l", params.Location)
	q.Set("sort", "date")
	q.Set("fromage", "7") // posted within the last 7 days

	switch params.EmploymentType {
	case model.EmploymentFullTime:
		q.Set("jt", "fulltime")
	case model.EmploymentPartTime:
		q.Set("jt", "parttime")
	case model.EmploymentContract:
		q.Set("jt", "contract")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indeedBaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("indeed fetch: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indeed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("indeed fetch: unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("indeed fetch: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("indeed fetch: parse feed: %w", err)
	}
	return feed, nil
}

// itemToPosting maps one feed item into a raw posting. Salary and employment
// type are never reliably present in the feed.
func (a *IndeedAdapter) itemToPosting(item *gofeed.Item) model.RawPosting {
	title, company := splitFeedTitle(item.Title)
	snippet := extractText(item.Description)

	var postedAt *time.Time
	if item.PublishedParsed != nil {
		t := *item.PublishedParsed
		postedAt = &t
	}

	return model.RawPosting{
		ExternalID:  indeedExternalID(item.Link),
		Source:      model.SourceIndeed,
		Title:       title,
		Company:     company,
		Location:    extractSnippetLocation(snippet),
		IsRemote:    containsRemote(item.Title) || containsRemote(snippet),
		Description: snippet,
		URL:         item.Link,
		PostedAt:    postedAt,
	}
}

// indeedExternalID extracts the jk= job ID from the link, falling back to a
// deterministic hash of the URL.
func indeedExternalID(link string) string {
	if m := indeedJobIDRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return hashURL(link)
}

// splitFeedTitle splits the combined "Job Title - Company" feed title on the
// last " - " separator. Everything before it is the title, so a role like
// "Engineer - Platform - Acme" attributes "Engineer - Platform" to the title.
func splitFeedTitle(feedTitle string) (title, company string) {
	idx := strings.LastIndex(feedTitle, " - ")
	if idx < 0 {
		return feedTitle, ""
	}
	return strings.TrimSpace(feedTitle[:idx]), strings.TrimSpace(feedTitle[idx+len(" - "):])
}

// extractSnippetLocation best-effort extracts a "City, ST" location from the
// description snippet.
func extractSnippetLocation(snippet string) string {
	if m := indeedLocationRe.FindStringSubmatch(snippet); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
