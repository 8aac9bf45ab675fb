// Package dedup assigns a stable identity to postings and merges duplicates
// reported by different sources within one aggregation run.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/twin-peaks-studio/career-os/internal/model"
	"github.com/twin-peaks-studio/career-os/internal/normalize"
)

// Hash derives the dedup identity for a posting from its normalized company,
// title, and location. The same logical job always yields the same hash, so
// results from separate runs reconcile against stored records without
// re-deriving identity differently. MD5 is an identity key here, not a
// security boundary; the "|" separator cannot appear in normalized output.
func Hash(company, title, location string) string {
	key := normalize.Company(company) + "|" + normalize.Title(title) + "|" + normalize.Location(location)
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// FromRaw builds a brand-new Job from one raw posting.
func FromRaw(raw model.RawPosting) model.Job {
	return model.Job{
		ID:                 uuid.NewString(),
		DedupHash:          Hash(raw.Company, raw.Title, raw.Location),
		Title:              raw.Title,
		TitleNormalized:    normalize.Title(raw.Title),
		Company:            raw.Company,
		CompanyNormalized:  normalize.Company(raw.Company),
		Location:           raw.Location,
		LocationNormalized: normalize.Location(raw.Location),
		IsRemote:           raw.IsRemote,
		EmploymentType:     raw.EmploymentType,
		Description:        raw.Description,
		Salary:             raw.Salary,
		PostedAt:           raw.PostedAt,
		FirstSeenAt:        time.Now(),
		Sources:            []model.Source{raw.Source},
		URLs:               map[model.Source]string{raw.Source: raw.URL},
	}
}

// Merge folds a raw posting into an existing Job with the same dedup hash.
// The per-field policy is deliberately asymmetric and must stay that way:
//   - company/location/description/salary/employmentType: first non-empty
//     wins, existing value takes priority over incoming;
//   - postedAt: earliest known date wins, a known date beats unknown;
//   - isRemote: OR — once remote, never reverts;
//   - sources: appended if absent, insertion order preserved;
//   - urls: first-seen URL per source wins.
func Merge(existing model.Job, raw model.RawPosting) model.Job {
	merged := existing

	hasSource := false
	for _, s := range existing.Sources {
		if s == raw.Source {
			hasSource = true
			break
		}
	}
	if !hasSource {
		merged.Sources = append(append([]model.Source{}, existing.Sources...), raw.Source)
	}

	merged.URLs = make(map[model.Source]string, len(existing.URLs)+1)
	for s, u := range existing.URLs {
		merged.URLs[s] = u
	}
	if _, ok := merged.URLs[raw.Source]; !ok {
		merged.URLs[raw.Source] = raw.URL
	}

	if merged.Company == "" {
		merged.Company = raw.Company
		merged.CompanyNormalized = normalize.Company(raw.Company)
	}
	if merged.Location == "" {
		merged.Location = raw.Location
		merged.LocationNormalized = normalize.Location(raw.Location)
	}
	if merged.Description == "" {
		merged.Description = raw.Description
	}
	if merged.Salary == "" {
		merged.Salary = raw.Salary
	}
	if merged.EmploymentType == "" {
		merged.EmploymentType = raw.EmploymentType
	}

	merged.PostedAt = earlierDate(existing.PostedAt, raw.PostedAt)
	merged.IsRemote = existing.IsRemote || raw.IsRemote

	return merged
}

// Deduplicate processes raw postings in order, merging each into the Job for
// its hash or creating a new one. Output preserves first-seen order. Order
// matters only for which source's value is "first" per field (first-writer-
// wins per field, not overall).
func Deduplicate(raws []model.RawPosting) []model.Job {
	byHash := make(map[string]model.Job, len(raws))
	var order []string

	for _, raw := range raws {
		hash := Hash(raw.Company, raw.Title, raw.Location)
		if existing, ok := byHash[hash]; ok {
			byHash[hash] = Merge(existing, raw)
		} else {
			byHash[hash] = FromRaw(raw)
			order = append(order, hash)
		}
	}

	jobs := make([]model.Job, 0, len(order))
	for _, hash := range order {
		jobs = append(jobs, byHash[hash])
	}
	return jobs
}

// earlierDate picks the earlier of two nullable dates; a known date always
// beats nil.
func earlierDate(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Before(*b) {
		return a
	}
	return b
}
