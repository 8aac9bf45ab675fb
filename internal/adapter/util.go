package adapter

import (
	"hash/fnv"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text.
// It first unescapes HTML entities (feed snippets are often double-encoded;
// no-op on already-real HTML), strips all tags, then collapses whitespace.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, "")
	return strings.Join(strings.Fields(plain), " ")
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// hashURL derives a deterministic fallback external ID from a listing URL
// for items whose URL doesn't carry a recognizable ID. The same URL always
// maps to the same ID, so an un-parseable listing still dedupes against
// itself across fetches.
func hashURL(url string) string {
	h := fnv.New32a()
	h.Write([]byte(url))
	return strconv.FormatUint(uint64(h.Sum32()), 16)
}

var (
	relHoursRe = regexp.MustCompile(`(\d+)\s*hours?\s*ago`)
	relDaysRe  = regexp.MustCompile(`(\d+)\s*days?\s*ago`)
	relWeeksRe = regexp.MustCompile(`(\d+)\s*weeks?\s*ago`)
)

// parseRelativeDate converts vendor relative-date strings ("3 days ago",
// "today", "yesterday", "2 weeks ago") into absolute timestamps. Unparsable
// or absent values map to nil — never to "now", which would fake freshness.
func parseRelativeDate(relative string, now time.Time) *time.Time {
	if relative == "" {
		return nil
	}
	lower := strings.ToLower(relative)

	if m := relHoursRe.FindStringSubmatch(lower); m != nil {
		hours, _ := strconv.Atoi(m[1])
		t := now.Add(-time.Duration(hours) * time.Hour)
		return &t
	}

	if m := relDaysRe.FindStringSubmatch(lower); m != nil {
		days, _ := strconv.Atoi(m[1])
		t := now.Add(-time.Duration(days) * 24 * time.Hour)
		return &t
	}

	if strings.Contains(lower, "today") || strings.Contains(lower, "just posted") || strings.Contains(lower, "just now") {
		t := now
		return &t
	}

	if strings.Contains(lower, "yesterday") {
		t := now.Add(-24 * time.Hour)
		return &t
	}

	if m := relWeeksRe.FindStringSubmatch(lower); m != nil {
		weeks, _ := strconv.Atoi(m[1])
		t := now.Add(-time.Duration(weeks) * 7 * 24 * time.Hour)
		return &t
	}

	return nil
}
