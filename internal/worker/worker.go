package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/vor/internal/address"
	"github.com/dukerupert/vor/internal/jobs"
	"github.com/dukerupert/vor/internal/standardize"
	"github.com/dukerupert/vor/internal/telemetry"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often to check for new jobs
	PollInterval time.Duration

	// StaleAfter is how long a job may sit in running before it is
	// assumed orphaned by a dead worker and requeued. Must exceed the
	// longest expected batch; provider pacing makes large batches slow.
	StaleAfter time.Duration

	// ReclaimInterval is how often to sweep for stale jobs
	ReclaimInterval time.Duration
}

// Worker polls the job store for pending batch jobs and runs them
// through the standardization processor one at a time. Provider
// pacing makes batches strictly sequential, so there is no per-worker
// concurrency.
type Worker struct {
	config    Config
	store     jobs.Store
	validator address.Validator
	metrics   *telemetry.Pipeline
	logger    *slog.Logger
}

// NewWorker creates a new background batch worker
func NewWorker(store jobs.Store, v address.Validator, metrics *telemetry.Pipeline, config Config, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.StaleAfter == 0 {
		config.StaleAfter = 30 * time.Minute
	}
	if config.ReclaimInterval == 0 {
		config.ReclaimInterval = 1 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		config:    config,
		store:     store,
		validator: v,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start begins processing jobs until the context is cancelled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"worker_id", w.config.WorkerID,
		"poll_interval", w.config.PollInterval,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	reclaim := time.NewTicker(w.config.ReclaimInterval)
	defer reclaim.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down", "worker_id", w.config.WorkerID)
			return ctx.Err()

		case <-reclaim.C:
			w.reclaimStale(ctx)

		case <-ticker.C:
			w.claimAndProcess(ctx)
		}
	}
}

// reclaimStale requeues jobs stranded in running by a dead worker.
func (w *Worker) reclaimStale(ctx context.Context) {
	n, err := w.store.ReclaimStale(ctx, w.config.StaleAfter)
	if err != nil {
		w.logger.Error("failed to reclaim stale jobs", "error", err)
		return
	}
	if n > 0 {
		w.logger.Warn("requeued stale jobs",
			"count", n,
			"stale_after", w.config.StaleAfter,
		)
	}
}

// claimAndProcess claims and processes a single job. Claimed jobs are
// drained back to back so a deep queue does not wait one poll
// interval per job.
func (w *Worker) claimAndProcess(ctx context.Context) {
	for {
		job, err := w.store.ClaimNext(ctx, w.config.WorkerID)
		if err != nil {
			w.logger.Error("failed to claim job", "error", err)
			return
		}
		if job == nil {
			return
		}

		w.logger.Info("processing job",
			"job_id", job.ID,
			"job_type", job.JobType,
		)

		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("job failed",
				"job_id", job.ID,
				"job_type", job.JobType,
				"error", err,
			)
			if failErr := w.store.Fail(ctx, job.ID, err.Error()); failErr != nil {
				w.logger.Error("failed to mark job failed", "job_id", job.ID, "error", failErr)
			}
			continue
		}

		w.logger.Info("job completed", "job_id", job.ID)

		if ctx.Err() != nil {
			return
		}
	}
}

// processJob runs a single claimed job to completion.
func (w *Worker) processJob(ctx context.Context, job *jobs.BatchJob) error {
	if job.JobType != jobs.JobTypeStandardizeBatch {
		return fmt.Errorf("unknown job type: %s", job.JobType)
	}

	var payload jobs.StandardizeBatchPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal batch payload: %w", err)
	}

	p := standardize.NewProcessor(w.validator, payload.IncludeAudit, w.logger, w.metrics)
	table, summary, err := p.Process(ctx, payload.Table())
	if err != nil {
		return err
	}

	result, err := json.Marshal(jobs.StandardizeBatchResult{
		Records: jobs.RecordsFromTable(table),
		Counts:  jobs.CountsFromSummary(summary),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal batch result: %w", err)
	}

	return w.store.Complete(ctx, job.ID, result, jobs.CountsFromSummary(summary))
}
