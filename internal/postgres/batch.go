package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/vor/internal/domain"
	"github.com/dukerupert/vor/internal/jobs"
)

// BatchStore implements jobs.Store using PostgreSQL.
type BatchStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that BatchStore implements jobs.Store.
var _ jobs.Store = (*BatchStore)(nil)

// NewBatchStore creates a new PostgreSQL-backed batch job store.
func NewBatchStore(pool *pgxpool.Pool) *BatchStore {
	return &BatchStore{pool: pool}
}

const batchJobColumns = `id, job_type, status, include_audit, payload, result,
	total_records, validated_address1, validated_address2, fallback,
	error_message, worker_id, created_at, started_at, completed_at`

// Enqueue inserts a pending batch job and returns it.
func (s *BatchStore) Enqueue(ctx context.Context, payload []byte, includeAudit bool) (*jobs.BatchJob, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO batch_jobs (job_type, status, include_audit, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING `+batchJobColumns,
		jobs.JobTypeStandardizeBatch, jobs.StatusPending, includeAudit, payload,
	)

	job, err := scanBatchJob(row)
	if err != nil {
		return nil, domain.Internal(err, "batch_store.enqueue", "failed to enqueue batch job")
	}
	return job, nil
}

// Get retrieves a batch job by ID.
func (s *BatchStore) Get(ctx context.Context, id uuid.UUID) (*jobs.BatchJob, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+batchJobColumns+`
		FROM batch_jobs
		WHERE id = $1`,
		id,
	)

	job, err := scanBatchJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.Error{Code: domain.ENOTFOUND, Message: "batch job not found", Op: "batch_store.get"}
		}
		return nil, domain.Internal(err, "batch_store.get", "failed to get batch job")
	}
	return job, nil
}

// ClaimNext atomically claims the oldest pending job for the given
// worker. Returns (nil, nil) when no pending job is available.
func (s *BatchStore) ClaimNext(ctx context.Context, workerID string) (*jobs.BatchJob, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE batch_jobs
		SET status = $1, worker_id = $2, started_at = now()
		WHERE id = (
			SELECT id FROM batch_jobs
			WHERE status = $3
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+batchJobColumns,
		jobs.StatusRunning, workerID, jobs.StatusPending,
	)

	job, err := scanBatchJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, "batch_store.claim_next", "failed to claim batch job")
	}
	return job, nil
}

// Complete marks a job completed with its result and counts.
func (s *BatchStore) Complete(ctx context.Context, id uuid.UUID, result []byte, counts jobs.Counts) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE batch_jobs
		SET status = $2, result = $3,
			total_records = $4, validated_address1 = $5,
			validated_address2 = $6, fallback = $7,
			completed_at = now()
		WHERE id = $1`,
		id, jobs.StatusCompleted, result,
		counts.Total, counts.ValidatedAddress1, counts.ValidatedAddress2, counts.Fallback,
	)
	if err != nil {
		return domain.Internal(err, "batch_store.complete", "failed to complete batch job")
	}
	return nil
}

// Fail marks a job failed with an error message.
func (s *BatchStore) Fail(ctx context.Context, id uuid.UUID, message string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE batch_jobs
		SET status = $2, error_message = $3, completed_at = now()
		WHERE id = $1`,
		id, jobs.StatusFailed, message,
	)
	if err != nil {
		return domain.Internal(err, "batch_store.fail", "failed to mark batch job failed")
	}
	return nil
}

// ReclaimStale requeues running jobs started before the cutoff. Jobs
// claimed by a worker that died mid-batch go back to pending so the
// next poll picks them up.
func (s *BatchStore) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.pool.Exec(ctx, `
		UPDATE batch_jobs
		SET status = $1, worker_id = '', started_at = NULL
		WHERE status = $2 AND started_at < $3`,
		jobs.StatusPending, jobs.StatusRunning, cutoff,
	)
	if err != nil {
		return 0, domain.Internal(err, "batch_store.reclaim_stale", "failed to reclaim stale batch jobs")
	}
	return int(tag.RowsAffected()), nil
}

func scanBatchJob(row pgx.Row) (*jobs.BatchJob, error) {
	var job jobs.BatchJob
	err := row.Scan(
		&job.ID,
		&job.JobType,
		&job.Status,
		&job.IncludeAudit,
		&job.Payload,
		&job.Result,
		&job.Counts.Total,
		&job.Counts.ValidatedAddress1,
		&job.Counts.ValidatedAddress2,
		&job.Counts.Fallback,
		&job.ErrorMessage,
		&job.WorkerID,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
