// Package normalize canonicalizes free-text job fields so that cosmetically
// different strings describing the same entity compare equal. All functions
// are pure and total: empty input yields empty output, nothing ever fails.
package normalize

import (
	"regexp"
	"strings"
)

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// Text lowercases, trims, strips punctuation, and collapses whitespace runs
// to single spaces.
func Text(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWordRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// Legal-entity suffixes stripped from the end of company names. Checked in
// order, each at most once, so "acme company inc" reduces to "acme".
var companySuffixes = []string{
	"inc", "llc", "ltd", "corp", "corporation", "company", "co",
	"incorporated", "limited", "group", "holdings", "plc",
}

// Company normalizes a company name and strips trailing legal-entity
// suffixes. Mid-string occurrences are left alone: "co op services" keeps
// its "co".
func Company(s string) string {
	n := Text(s)
	for _, suffix := range companySuffixes {
		n = strings.TrimSuffix(n, " "+suffix)
	}
	return strings.TrimSpace(n)
}

// Whole-word substitutions expanding seniority and role abbreviations,
// applied in order.
var titleSubs = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\bsr\b`), "senior"},
	{regexp.MustCompile(`\bjr\b`), "junior"},
	{regexp.MustCompile(`\bswe\b`), "software engineer"},
	{regexp.MustCompile(`\bsde\b`), "software development engineer"},
	{regexp.MustCompile(`\bpm\b`), "product manager"},
	{regexp.MustCompile(`\bux\b`), "user experience"},
	{regexp.MustCompile(`\bui\b`), "user interface"},
}

// Title normalizes a job title and expands common abbreviations. Matches are
// whole words only: "osrs" never becomes "osenior".
func Title(s string) string {
	n := Text(s)
	for _, sub := range titleSubs {
		n = sub.re.ReplaceAllString(n, sub.repl)
	}
	return n
}

var (
	usRe         = regexp.MustCompile(`\b(united states|usa)\b`)
	descriptorRe = regexp.MustCompile(`\b(remote|hybrid|onsite)\b`)
)

// Location normalizes a location string: "united states"/"usa" become "us",
// and work-mode descriptors (remote, hybrid, on-site) are removed entirely.
// Text has already stripped the hyphen from "on-site" by the time the
// descriptor match runs.
func Location(s string) string {
	n := Text(s)
	n = usRe.ReplaceAllString(n, "us")
	n = descriptorRe.ReplaceAllString(n, "")
	return strings.Join(strings.Fields(n), " ")
}

var remoteMarkers = []string{"remote", "work from home", "wfh", "anywhere"}

// IsRemoteJob reports whether any of the title, location, or description
// mentions remote work. The scan is a case-insensitive substring match.
func IsRemoteJob(title, location, description string) bool {
	var parts []string
	for _, s := range []string{title, location, description} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	haystack := strings.ToLower(strings.Join(parts, " "))

	for _, marker := range remoteMarkers {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}
