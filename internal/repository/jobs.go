package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, job_type, payload, status, priority, attempts,
	max_attempts, error_message, scheduled_at, started_at, completed_at, created_at`

func scanJob(row interface{ Scan(...interface{}) error }) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.JobType, &j.Payload, &j.Status, &j.Priority, &j.Attempts,
		&j.MaxAttempts, &j.ErrorMessage, &j.ScheduledAt, &j.StartedAt,
		&j.CompletedAt, &j.CreatedAt,
	)
	return j, err
}

// EnqueueJobParams are the parameters for EnqueueJob.
type EnqueueJobParams struct {
	JobType     string
	Payload     []byte
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// EnqueueJob inserts a pending job.
func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error) {
	const query = `
		INSERT INTO jobs (job_type, payload, priority, max_attempts, scheduled_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + jobColumns
	return scanJob(q.db.QueryRowContext(ctx, query,
		arg.JobType, arg.Payload, arg.Priority, arg.MaxAttempts, arg.ScheduledAt))
}

// DequeueJob locks and returns the next runnable job. Uses FOR UPDATE
// SKIP LOCKED so concurrent workers never grab the same row. Returns
// sql.ErrNoRows when the queue is empty.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	const query = `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = 'pending' AND scheduled_at <= now()
		ORDER BY priority DESC, scheduled_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`
	return scanJob(q.db.QueryRowContext(ctx, query))
}

// UpdateJobStarted marks a job as running and bumps its attempt count.
func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	const query = `
		UPDATE jobs
		SET status = 'running', attempts = attempts + 1, started_at = now()
		WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}

// UpdateJobCompleted marks a job as done.
func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	const query = `
		UPDATE jobs SET status = 'completed', completed_at = now()
		WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}

// UpdateJobFailedParams are the parameters for UpdateJobFailed.
type UpdateJobFailedParams struct {
	ID           uuid.UUID
	Permanent    bool
	ErrorMessage sql.NullString
}

// UpdateJobFailed records a failure. Jobs with attempts remaining go back to
// pending with exponential backoff; permanent failures and exhausted jobs are
// marked failed.
func (q *Queries) UpdateJobFailed(ctx context.Context, arg UpdateJobFailedParams) error {
	const query = `
		UPDATE jobs
		SET status = CASE WHEN $2 OR attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
		    scheduled_at = now() + (interval '30 seconds' * power(2, attempts)),
		    error_message = $3,
		    completed_at = CASE WHEN $2 OR attempts >= max_attempts THEN now() ELSE NULL END
		WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, arg.ID, arg.Permanent, arg.ErrorMessage)
	return err
}

// RecoverStaleJobs resets running jobs older than the threshold back to
// pending. Returns the number of recovered jobs.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	const query = `
		UPDATE jobs
		SET status = 'pending', started_at = NULL
		WHERE status = 'running'
		  AND started_at < now() - ($1 * interval '1 second')`
	res, err := q.db.ExecContext(ctx, query, thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
