package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateJob records a new pending processing job for a document. Every
// processing attempt gets a fresh job; failed jobs stay behind as an audit
// trail.
func (s *Store) CreateJob(ctx context.Context, documentID, jobType string) (*Job, error) {
	now := time.Now().UTC()
	j := Job{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		JobType:    jobType,
		Status:     JobPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processing_jobs (id, document_id, job_type, status, progress, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		j.ID, j.DocumentID, j.JobType, j.Status, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting processing job: %w", err)
	}
	return &j, nil
}

// UpdateJob transitions a job's status and progress. Terminal states stamp
// completed_at. errMsg is recorded verbatim for failed jobs.
func (s *Store) UpdateJob(ctx context.Context, id string, status JobStatus, progress int, errMsg string) error {
	now := time.Now().UTC()
	var completedAt any
	if status == JobCompleted || status == JobFailed {
		completedAt = now
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = ?, progress = ?, error_message = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		status, progress, errMsg, now, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("updating processing job: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("processing job %s not found", id)
	}
	return nil
}

const jobColumns = `id, document_id, job_type, status, progress, error_message, created_at, updated_at, completed_at`

func scanJob(row interface{ Scan(...any) error }) (*Job, error) {
	var j Job
	var completedAt sql.NullTime
	err := row.Scan(&j.ID, &j.DocumentID, &j.JobType, &j.Status, &j.Progress,
		&j.ErrorMsg, &j.CreatedAt, &j.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

// GetJob retrieves a job by ID, or nil when it does not exist.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM processing_jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return j, nil
}

// ListJobs returns all jobs for a document, newest first.
func (s *Store) ListJobs(ctx context.Context, documentID string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM processing_jobs WHERE document_id = ? ORDER BY created_at DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}
