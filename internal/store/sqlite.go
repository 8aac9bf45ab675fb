// Package store persists unified jobs and tracked searches in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/twin-peaks-studio/career-os/internal/model"
)

// SQLiteStore keeps jobs keyed by dedup hash so repeated aggregation runs
// reconcile against what earlier runs already saw.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id              TEXT PRIMARY KEY,
	dedup_hash      TEXT NOT NULL UNIQUE,
	title           TEXT NOT NULL,
	company         TEXT NOT NULL,
	location        TEXT NOT NULL,
	is_remote       INTEGER NOT NULL DEFAULT 0,
	employment_type TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	salary          TEXT NOT NULL DEFAULT '',
	posted_at       DATETIME,
	first_seen_at   DATETIME NOT NULL,
	sources         TEXT NOT NULL,
	urls            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tracked_searches (
	id              TEXT PRIMARY KEY,
	query           TEXT NOT NULL,
	location        TEXT NOT NULL DEFAULT '',
	employment_type TEXT NOT NULL DEFAULT '',
	is_active       INTEGER NOT NULL DEFAULT 1,
	created_at      DATETIME NOT NULL,
	last_fetched_at DATETIME
);

CREATE TABLE IF NOT EXISTS search_jobs (
	search_id TEXT NOT NULL REFERENCES tracked_searches(id),
	job_id    TEXT NOT NULL REFERENCES jobs(id),
	PRIMARY KEY (search_id, job_id)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// UpsertJobs merges the batch into the store. Jobs whose dedup hash is
// already present have their source set and URL map unioned into the stored
// record; unseen hashes are inserted as-is. Every job in the batch is linked
// to searchID. Returns the jobs that were newly inserted.
func (s *SQLiteStore) UpsertJobs(jobs []model.Job, searchID string) ([]model.Job, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("upsert jobs: %w", err)
	}
	defer tx.Rollback()

	var inserted []model.Job
	for _, job := range jobs {
		existing, err := getJobByHash(tx, job.DedupHash)
		switch {
		case err == sql.ErrNoRows:
			if err := insertJob(tx, job); err != nil {
				return nil, err
			}
			inserted = append(inserted, job)
		case err != nil:
			return nil, fmt.Errorf("looking up job %s: %w", job.DedupHash, err)
		default:
			job = unionInto(existing, job)
			if err := updateJobSources(tx, job); err != nil {
				return nil, err
			}
		}

		if err := linkSearchJob(tx, searchID, job.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("upsert jobs: %w", err)
	}
	return inserted, nil
}

// unionInto folds the incoming job's sources and URLs into the stored record.
// The stored record keeps its identity and field values; only the source set,
// URL map, remote flag, and earliest posting date can change.
func unionInto(stored, incoming model.Job) model.Job {
	for _, src := range incoming.Sources {
		if !hasSource(stored.Sources, src) {
			stored.Sources = append(stored.Sources, src)
			stored.URLs[src] = incoming.URLs[src]
		}
	}
	stored.IsRemote = stored.IsRemote || incoming.IsRemote
	if incoming.PostedAt != nil &&
		(stored.PostedAt == nil || incoming.PostedAt.Before(*stored.PostedAt)) {
		stored.PostedAt = incoming.PostedAt
	}
	return stored
}

func hasSource(sources []model.Source, src model.Source) bool {
	for _, s := range sources {
		if s == src {
			return true
		}
	}
	return false
}

func getJobByHash(tx *sql.Tx, hash string) (model.Job, error) {
	row := tx.QueryRow(`
		SELECT id, dedup_hash, title, company, location, is_remote,
		       employment_type, description, salary, posted_at, first_seen_at,
		       sources, urls
		FROM jobs WHERE dedup_hash = ?`, hash)
	return scanJob(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (model.Job, error) {
	var (
		job         model.Job
		postedAt    sql.NullTime
		sourcesJSON string
		urlsJSON    string
	)
	err := row.Scan(
		&job.ID, &job.DedupHash, &job.Title, &job.Company, &job.Location,
		&job.IsRemote, &job.EmploymentType, &job.Description, &job.Salary,
		&postedAt, &job.FirstSeenAt, &sourcesJSON, &urlsJSON,
	)
	if err != nil {
		return model.Job{}, err
	}
	if postedAt.Valid {
		t := postedAt.Time
		job.PostedAt = &t
	}
	if job.Sources, err = decodeSources(sourcesJSON); err != nil {
		return model.Job{}, fmt.Errorf("job %s: %w", job.ID, err)
	}
	if job.URLs, err = decodeURLs(urlsJSON); err != nil {
		return model.Job{}, fmt.Errorf("job %s: %w", job.ID, err)
	}
	return job, nil
}

// decodeSources parses the stored source list, rejecting unknown tags so a
// corrupted row surfaces as an error instead of an empty source.
func decodeSources(data string) ([]model.Source, error) {
	var raw []string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	sources := make([]model.Source, 0, len(raw))
	for _, s := range raw {
		src, err := model.ParseSource(s)
		if err != nil {
			return nil, fmt.Errorf("decode sources: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func decodeURLs(data string) (map[model.Source]string, error) {
	var raw map[string]string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("decode urls: %w", err)
	}
	urls := make(map[model.Source]string, len(raw))
	for s, u := range raw {
		src, err := model.ParseSource(s)
		if err != nil {
			return nil, fmt.Errorf("decode urls: %w", err)
		}
		urls[src] = u
	}
	return urls, nil
}

func encodeSources(sources []model.Source) (string, error) {
	data, err := json.Marshal(sources)
	if err != nil {
		return "", fmt.Errorf("encode sources: %w", err)
	}
	return string(data), nil
}

func encodeURLs(urls map[model.Source]string) (string, error) {
	data, err := json.Marshal(urls)
	if err != nil {
		return "", fmt.Errorf("encode urls: %w", err)
	}
	return string(data), nil
}

func insertJob(tx *sql.Tx, job model.Job) error {
	sourcesJSON, err := encodeSources(job.Sources)
	if err != nil {
		return err
	}
	urlsJSON, err := encodeURLs(job.URLs)
	if err != nil {
		return err
	}

	var postedAt any
	if job.PostedAt != nil {
		postedAt = *job.PostedAt
	}

	_, err = tx.Exec(`
		INSERT INTO jobs (id, dedup_hash, title, company, location, is_remote,
			employment_type, description, salary, posted_at, first_seen_at,
			sources, urls)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.DedupHash, job.Title, job.Company, job.Location,
		job.IsRemote, job.EmploymentType, job.Description, job.Salary,
		postedAt, job.FirstSeenAt, sourcesJSON, urlsJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", job.DedupHash, err)
	}
	return nil
}

func updateJobSources(tx *sql.Tx, job model.Job) error {
	sourcesJSON, err := encodeSources(job.Sources)
	if err != nil {
		return err
	}
	urlsJSON, err := encodeURLs(job.URLs)
	if err != nil {
		return err
	}

	var postedAt any
	if job.PostedAt != nil {
		postedAt = *job.PostedAt
	}

	_, err = tx.Exec(`
		UPDATE jobs SET sources = ?, urls = ?, is_remote = ?, posted_at = ?
		WHERE id = ?`,
		sourcesJSON, urlsJSON, job.IsRemote, postedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", job.ID, err)
	}
	return nil
}

func linkSearchJob(tx *sql.Tx, searchID, jobID string) error {
	if searchID == "" {
		return nil
	}
	_, err := tx.Exec(
		"INSERT OR IGNORE INTO search_jobs (search_id, job_id) VALUES (?, ?)",
		searchID, jobID,
	)
	if err != nil {
		return fmt.Errorf("linking job %s to search %s: %w", jobID, searchID, err)
	}
	return nil
}

// AddSearch saves a new tracked search and returns it with its generated ID.
func (s *SQLiteStore) AddSearch(params model.SearchParams) (model.TrackedSearch, error) {
	search := model.TrackedSearch{
		ID:             uuid.NewString(),
		Query:          params.Query,
		Location:       params.Location,
		EmploymentType: params.EmploymentType,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	_, err := s.db.Exec(`
		INSERT INTO tracked_searches (id, query, location, employment_type, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)`,
		search.ID, search.Query, search.Location, search.EmploymentType, search.CreatedAt,
	)
	if err != nil {
		return model.TrackedSearch{}, fmt.Errorf("adding search: %w", err)
	}
	return search, nil
}

// ActiveSearches returns every tracked search the scheduler should run,
// oldest first.
func (s *SQLiteStore) ActiveSearches() ([]model.TrackedSearch, error) {
	return s.listSearches("WHERE is_active = 1")
}

// ListSearches returns every tracked search, active or not.
func (s *SQLiteStore) ListSearches() ([]model.TrackedSearch, error) {
	return s.listSearches("")
}

func (s *SQLiteStore) listSearches(where string) ([]model.TrackedSearch, error) {
	rows, err := s.db.Query(`
		SELECT id, query, location, employment_type, is_active, created_at, last_fetched_at
		FROM tracked_searches ` + where + ` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}
	defer rows.Close()

	var searches []model.TrackedSearch
	for rows.Next() {
		var (
			search      model.TrackedSearch
			lastFetched sql.NullTime
		)
		if err := rows.Scan(&search.ID, &search.Query, &search.Location,
			&search.EmploymentType, &search.IsActive, &search.CreatedAt, &lastFetched); err != nil {
			return nil, fmt.Errorf("scanning search: %w", err)
		}
		if lastFetched.Valid {
			t := lastFetched.Time
			search.LastFetchedAt = &t
		}
		searches = append(searches, search)
	}
	return searches, rows.Err()
}

// SetSearchActive enables or disables a tracked search.
func (s *SQLiteStore) SetSearchActive(id string, active bool) error {
	res, err := s.db.Exec("UPDATE tracked_searches SET is_active = ? WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("updating search %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating search %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("search %s not found", id)
	}
	return nil
}

// TouchSearch records when a search was last aggregated.
func (s *SQLiteStore) TouchSearch(id string, fetchedAt time.Time) error {
	_, err := s.db.Exec("UPDATE tracked_searches SET last_fetched_at = ? WHERE id = ?", fetchedAt, id)
	if err != nil {
		return fmt.Errorf("touching search %s: %w", id, err)
	}
	return nil
}

// ListJobs returns every stored job, most recently posted first. Jobs with
// no posting date sort last.
func (s *SQLiteStore) ListJobs() ([]model.Job, error) {
	return s.queryJobs(`
		SELECT id, dedup_hash, title, company, location, is_remote,
		       employment_type, description, salary, posted_at, first_seen_at,
		       sources, urls
		FROM jobs
		ORDER BY posted_at IS NULL, posted_at DESC, first_seen_at DESC`)
}

// ListJobsForSearch returns the stored jobs linked to one tracked search.
func (s *SQLiteStore) ListJobsForSearch(searchID string) ([]model.Job, error) {
	return s.queryJobs(`
		SELECT j.id, j.dedup_hash, j.title, j.company, j.location, j.is_remote,
		       j.employment_type, j.description, j.salary, j.posted_at, j.first_seen_at,
		       j.sources, j.urls
		FROM jobs j
		JOIN search_jobs sj ON sj.job_id = j.id
		WHERE sj.search_id = ?
		ORDER BY j.posted_at IS NULL, j.posted_at DESC, j.first_seen_at DESC`, searchID)
}

func (s *SQLiteStore) queryJobs(query string, args ...any) ([]model.Job, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
