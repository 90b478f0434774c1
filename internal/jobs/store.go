package jobs

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"media-scribe/internal/types"
)

var (
	// ErrDuplicateID is returned when creating a job whose id already exists.
	ErrDuplicateID = errors.New("job id already exists")
	// ErrNotFound is returned when a job id is unknown.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidTransition is returned for a status change the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid job status transition")
	// ErrResultRequired is returned when completing a job without a result.
	ErrResultRequired = errors.New("completed status requires a result")
)

// Job is the durable record of one unit of trackable asynchronous work.
type Job struct {
	ID          string
	Owner       string
	Title       string
	Status      string
	Result      *string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Store persists jobs in SQLite. It is the single source of truth for job
// state; writers go through Create and Transition only.
type Store struct {
	db *sql.DB
}

// NewStore opens the job database and ensures the schema exists.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open job database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		result TEXT,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_owner_status ON jobs(owner, status);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create jobs table: %v", err)
	}

	return &Store{db: db}, nil
}

// Create inserts a new job in pending status.
func (s *Store) Create(id, owner, title string) (*Job, error) {
	job := &Job{
		ID:        id,
		Owner:     owner,
		Title:     title,
		Status:    types.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO jobs (id, owner, title, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		job.ID, job.Owner, job.Title, job.Status, job.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateID
		}
		return nil, fmt.Errorf("failed to create job: %v", err)
	}

	return job, nil
}

// Transition moves a job to a new status as a single atomic write.
//
// The state machine is monotonic: pending -> processing -> completed|failed.
// Completed and failed are terminal. Re-applying the current status is a
// no-op and never overwrites completed_at. Completing requires a non-nil
// result (an empty string is allowed).
func (s *Store) Transition(id, status string, result *string) (*Job, error) {
	if status == types.StatusCompleted && result == nil {
		return nil, ErrResultRequired
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transition: %v", err)
	}
	defer tx.Rollback()

	job, err := scanJob(tx.QueryRow(
		`SELECT id, owner, title, status, result, created_at, completed_at FROM jobs WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	if status == job.Status {
		// Idempotent repeat, nothing to write.
		return job, nil
	}
	if !validTransition(job.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
	}

	job.Status = status
	if status == types.StatusCompleted {
		job.Result = result
		if job.CompletedAt == nil {
			now := time.Now().UTC()
			job.CompletedAt = &now
		}
	}

	_, err = tx.Exec(
		`UPDATE jobs SET status = ?, result = ?, completed_at = ? WHERE id = ?`,
		job.Status, job.Result, job.CompletedAt, job.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update job %s: %v", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %v", err)
	}

	return job, nil
}

// Get retrieves a job by id.
func (s *Store) Get(id string) (*Job, error) {
	return scanJob(s.db.QueryRow(
		`SELECT id, owner, title, status, result, created_at, completed_at FROM jobs WHERE id = ?`, id))
}

// ListActive returns the owner's pending and processing jobs, oldest first.
func (s *Store) ListActive(owner string) ([]*Job, error) {
	rows, err := s.db.Query(
		`SELECT id, owner, title, status, result, created_at, completed_at
		 FROM jobs WHERE owner = ? AND status IN (?, ?) ORDER BY created_at`,
		owner, types.StatusPending, types.StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %v", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job         Job
		result      sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(&job.ID, &job.Owner, &job.Title, &job.Status, &result, &job.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %v", err)
	}

	if result.Valid {
		job.Result = &result.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}

// validTransition enforces the allowed state machine edges.
func validTransition(from, to string) bool {
	switch from {
	case types.StatusPending:
		return to == types.StatusProcessing
	case types.StatusProcessing:
		return to == types.StatusCompleted || to == types.StatusFailed
	default:
		// completed and failed are terminal
		return false
	}
}
