package store

import (
	"time"

	"github.com/twin-peaks-studio/career-os/internal/model"
)

// NopStore is a no-op store used when running one-off fetches without
// persistence. Nothing is ever recorded, so every job appears new.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) UpsertJobs(jobs []model.Job, searchID string) ([]model.Job, error) {
	return jobs, nil
}
func (s *NopStore) ActiveSearches() ([]model.TrackedSearch, error) { return nil, nil }
func (s *NopStore) TouchSearch(id string, fetchedAt time.Time) error { return nil }
