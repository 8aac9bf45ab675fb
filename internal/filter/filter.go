package filter

import (
	"strings"

	"github.com/twin-peaks-studio/career-os/internal/config"
	"github.com/twin-peaks-studio/career-os/internal/model"
)

// KeywordFilter matches jobs by title and location keywords. Include lists
// require at least one match; exclude lists veto on any match. Matching is
// case-insensitive substring. Empty lists are treated as "match all".
type KeywordFilter struct {
	titleKeywords        []string
	titleExcludeKeywords []string
	locations            []string
	excludeLocations     []string
}

// FromConfig builds a filter from the notification filter settings.
func FromConfig(cfg config.FilterConfig) *KeywordFilter {
	return &KeywordFilter{
		titleKeywords:        cfg.TitleKeywords,
		titleExcludeKeywords: cfg.TitleExcludeKeywords,
		locations:            cfg.Locations,
		excludeLocations:     cfg.ExcludeLocations,
	}
}

// Match reports whether the job passes every include and exclude rule. A job
// with no location is never vetoed by location rules, and remote jobs match
// a "remote" location keyword regardless of their location text.
func (f *KeywordFilter) Match(job model.Job) bool {
	title := strings.ToLower(job.Title)
	location := strings.ToLower(job.Location)

	if containsAny(title, f.titleExcludeKeywords) {
		return false
	}
	if len(f.titleKeywords) > 0 && !containsAny(title, f.titleKeywords) {
		return false
	}

	if location != "" && containsAny(location, f.excludeLocations) {
		return false
	}
	if len(f.locations) > 0 && location != "" {
		matched := containsAny(location, f.locations)
		if !matched && job.IsRemote {
			matched = listContains(f.locations, "remote")
		}
		if !matched {
			return false
		}
	}

	return true
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func listContains(keywords []string, target string) bool {
	for _, kw := range keywords {
		if strings.EqualFold(kw, target) {
			return true
		}
	}
	return false
}
