// Package jobs implements the durable job queue: persisted job records with a
// monotonic status lifecycle, and a queue that drains pending jobs through
// the orchestrator.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no job exists under an id.
var ErrNotFound = errors.New("job not found")

// Job statuses. Transitions are monotonic: pending -> running -> completed or
// failed; terminal states never change.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one persisted unit of background work.
type Job struct {
	ID        int64          `json:"id"`
	ProjectID int64          `json:"projectId"`
	Type      string         `json:"type"`
	Status    string         `json:"status"`
	Priority  int            `json:"priority"`
	Progress  int            `json:"progress"`
	Payload   map[string]any `json:"payload,omitempty"`
	Result    any            `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
}

// Store persists jobs in the metadata database.
type Store struct {
	db *sql.DB
}

// NewStore creates a job store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a pending job and returns it.
func (s *Store) Create(ctx context.Context, projectID int64, jobType string, priority int, payload map[string]any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("marshal job payload: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `INSERT INTO jobs(project_id, type, status, priority, progress, payload_json, created_at, updated_at)
		VALUES(?, ?, ?, ?, 0, ?, ?, ?)`,
		projectID, jobType, StatusPending, priority, string(raw), now, now)
	if err != nil {
		return Job{}, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Job{}, fmt.Errorf("read job id: %w", err)
	}
	return s.Get(ctx, id)
}

// Get returns a job by id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, type, status, priority, progress, payload_json, result_json, error, created_at, updated_at
		FROM jobs WHERE id=?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return job, err
}

// List returns a project's jobs, newest first.
func (s *Store) List(ctx context.Context, projectID int64) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, project_id, type, status, priority, progress, payload_json, result_json, error, created_at, updated_at
		FROM jobs WHERE project_id=? ORDER BY id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// Pending returns runnable jobs in drain order: higher priority first, then
// oldest first.
func (s *Store) Pending(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, project_id, type, status, priority, progress, payload_json, result_json, error, created_at, updated_at
		FROM jobs WHERE status=? ORDER BY priority DESC, created_at ASC, id ASC`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("query pending jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// MarkRunning transitions pending -> running. Any other current status leaves
// the row untouched.
func (s *Store) MarkRunning(ctx context.Context, id int64) error {
	return s.transition(ctx, id,
		`UPDATE jobs SET status=?, updated_at=? WHERE id=? AND status=?`,
		StatusRunning, now(), id, StatusPending)
}

// MarkCompleted transitions running -> completed, storing the result.
func (s *Store) MarkCompleted(ctx context.Context, id int64, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal job result: %w", err)
	}
	return s.transition(ctx, id,
		`UPDATE jobs SET status=?, progress=100, result_json=?, updated_at=? WHERE id=? AND status=?`,
		StatusCompleted, string(raw), now(), id, StatusRunning)
}

// MarkFailed transitions a non-terminal job to failed.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.transition(ctx, id,
		`UPDATE jobs SET status=?, error=?, updated_at=? WHERE id=? AND status IN (?, ?)`,
		StatusFailed, message, now(), id, StatusPending, StatusRunning)
}

// SetProgress updates the progress of a running job.
func (s *Store) SetProgress(ctx context.Context, id int64, progress int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET progress=?, updated_at=? WHERE id=? AND status=?`,
		progress, now(), id, StatusRunning)
	if err != nil {
		return fmt.Errorf("set job progress: %w", err)
	}
	return nil
}

// RecoverStale fails every job left running by a previous process. Called
// once on startup, before the queue drains.
func (s *Store) RecoverStale(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET status=?, error=?, updated_at=? WHERE status=?`,
		StatusFailed, "system restart detected", now(), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count recovered jobs: %w", err)
	}
	return n, nil
}

func (s *Store) transition(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("count updated jobs: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("job %d: invalid status transition", id)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var j Job
	var payload, result, errMsg sql.NullString
	if err := row.Scan(&j.ID, &j.ProjectID, &j.Type, &j.Status, &j.Priority, &j.Progress, &payload, &result, &errMsg, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return Job{}, err
	}
	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &j.Payload); err != nil {
			return Job{}, fmt.Errorf("unmarshal job payload: %w", err)
		}
	}
	if result.Valid && result.String != "" {
		if err := json.Unmarshal([]byte(result.String), &j.Result); err != nil {
			return Job{}, fmt.Errorf("unmarshal job result: %w", err)
		}
	}
	j.Error = errMsg.String
	return j, nil
}

func collectJobs(rows *sql.Rows) ([]Job, error) {
	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}
