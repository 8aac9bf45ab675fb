package dedup

import (
	"sort"
	"time"

	"github.com/twin-peaks-studio/career-os/internal/model"
)

const week = 7 * 24 * time.Hour

// PostedToday reports whether the posting date is known and within the last
// 24 hours.
func PostedToday(postedAt *time.Time) bool {
	if postedAt == nil {
		return false
	}
	return !postedAt.Before(time.Now().Add(-24 * time.Hour))
}

// PostedThisWeek reports whether the posting date is within the last 7 days.
// Unknown dates are included, not excluded: a job without a date may still be
// fresh.
func PostedThisWeek(postedAt *time.Time) bool {
	if postedAt == nil {
		return true
	}
	return !postedAt.Before(time.Now().Add(-week))
}

// SortByDate returns a copy sorted most-recent-first: jobs posted today come
// before everything else, then by posting date descending, with unknown dates
// after all known dates. The sort is stable.
func SortByDate(jobs []model.Job) []model.Job {
	sorted := make([]model.Job, len(jobs))
	copy(sorted, jobs)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]

		aToday, bToday := PostedToday(a.PostedAt), PostedToday(b.PostedAt)
		if aToday != bToday {
			return aToday
		}

		switch {
		case a.PostedAt == nil && b.PostedAt == nil:
			return false
		case a.PostedAt == nil:
			return false
		case b.PostedAt == nil:
			return true
		default:
			return a.PostedAt.After(*b.PostedAt)
		}
	})

	return sorted
}
