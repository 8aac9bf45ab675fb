package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twin-peaks-studio/career-os/internal/model"
	"github.com/twin-peaks-studio/career-os/internal/retry"
)

const (
	serpBaseURL         = "https://serpapi.com/search"
	serpEngine          = "google_jobs"
	serpDefaultLocation = "United States"
)

// serpJob represents a single job in the SerpAPI google_jobs response.
type serpJob struct {
	JobID        string `json:"job_id"`
	Title        string `json:"title"`
	CompanyName  string `json:"company_name"`
	Location     string `json:"location"`
	Description  string `json:"description"`
	ShareLink    string `json:"share_link"`
	RelatedLinks []struct {
		Link string `json:"link"`
	} `json:"related_links"`
	DetectedExtensions struct {
		PostedAt     string `json:"posted_at"`
		Salary       string `json:"salary"`
		ScheduleType string `json:"schedule_type"`
	} `json:"detected_extensions"`
}

// serpResponse is the top-level SerpAPI response.
type serpResponse struct {
	JobsResults []serpJob `json:"jobs_results"`
	Error       string    `json:"error"`
}

// SerpAdapter fetches Google Jobs results through the SerpAPI search API.
type SerpAdapter struct {
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// NewSerpAdapter creates an adapter for the SerpAPI google_jobs engine.
func NewSerpAdapter(apiKey string, client *http.Client, logger *slog.Logger) *SerpAdapter {
	return &SerpAdapter{
		apiKey: apiKey,
		client: client,
		logger: logger,
	}
}

func (a *SerpAdapter) Source() model.Source { return model.SourceGoogle }

// Fetch retrieves job results for the query. A missing API key degrades to
// an empty result with a logged warning; every other failure is returned so
// the aggregator records it in the per-source outcome instead of reporting
// "zero results found" — those mean different things operationally. A 429
// keeps its RateLimitError type so callers can tell throttling apart.
func (a *SerpAdapter) Fetch(ctx context.Context, params model.SearchParams) ([]model.RawPosting, error) {
	if a.apiKey == "" {
		a.logger.Warn("serpapi key not set, skipping google jobs fetch")
		return nil, nil
	}

	var data serpResponse
	err := retry.Do(ctx, a.logger, 2, 2*time.Second, func() error {
		return a.search(ctx, params, &data)
	})
	if err != nil {
		var rateErr *model.RateLimitError
		if errors.As(err, &rateErr) {
			return nil, rateErr
		}
		return nil, err
	}

	jobs := make([]model.RawPosting, 0, len(data.JobsResults))
	now := time.Now()
	for _, sj := range data.JobsResults {
		jobs = append(jobs, model.RawPosting{
			ExternalID:     sj.JobID,
			Source:         model.SourceGoogle,
			Title:          sj.Title,
			Company:        sj.CompanyName,
			Location:       sj.Location,
			IsRemote:       containsRemote(sj.Location) || containsRemote(sj.Title),
			EmploymentType: normalizeScheduleType(sj.DetectedExtensions.ScheduleType),
			Description:    sj.Description,
			Salary:         sj.DetectedExtensions.Salary,
			URL:            serpJobURL(sj),
			PostedAt:       parseRelativeDate(sj.DetectedExtensions.PostedAt, now),
		})
	}

	return jobs, nil
}

// search performs one request against SerpAPI, filling out on success.
func (a *SerpAdapter) search(ctx context.Context, params model.SearchParams, out *serpResponse) error {
	chips := []string{"date_posted:week"}
	switch params.EmploymentType {
	case model.EmploymentFullTime:
		chips = append(chips, "employment_type:FULLTIME")
	case model.EmploymentPartTime:
		chips = append(chips, "employment_type:PARTTIME")
	case model.EmploymentContract:
		chips = append(chips, "employment_type:CONTRACTOR")
	}

	location := params.Location
	if location == "" {
		location = serpDefaultLocation
	}

	q := url.Values{}
	q.Set("api_key", a.apiKey)
	q.Set("engine", serpEngine)
	q.Set("q", params.Query)
	q.Set("location", location)
	q.Set("chips", strings.Join(chips, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpBaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("google jobs fetch: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("google jobs fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &model.RateLimitError{
			Source:     model.SourceGoogle,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("google jobs fetch: unexpected status %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("google jobs fetch: %w", err)
	}
	if out.Error != "" {
		return fmt.Errorf("google jobs fetch: serpapi error: %s", out.Error)
	}
	return nil
}

// serpJobURL picks the share link, falling back to the first related link.
func serpJobURL(sj serpJob) string {
	if sj.ShareLink != "" {
		return sj.ShareLink
	}
	if len(sj.RelatedLinks) > 0 {
		return sj.RelatedLinks[0].Link
	}
	return ""
}

// normalizeScheduleType maps SerpAPI's free-form schedule_type onto our
// employment type values.
func normalizeScheduleType(scheduleType string) string {
	if scheduleType == "" {
		return ""
	}
	lower := strings.ToLower(scheduleType)
	switch {
	case strings.Contains(lower, "full"):
		return model.EmploymentFullTime
	case strings.Contains(lower, "part"):
		return model.EmploymentPartTime
	case strings.Contains(lower, "contract"):
		return model.EmploymentContract
	}
	return lower
}

func containsRemote(s string) bool {
	return strings.Contains(strings.ToLower(s), "remote")
}
