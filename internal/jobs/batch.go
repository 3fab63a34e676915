package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/vor/internal/standardize"
)

// JobTypeStandardizeBatch identifies asynchronous batch standardization jobs.
const JobTypeStandardizeBatch = "batch.standardize"

// Batch job statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// BatchRecord is one address row in a batch payload or result.
type BatchRecord struct {
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
	Zip4         string `json:"zip4,omitempty"`
	Attempt      string `json:"attempt,omitempty"`
	Confirmation string `json:"confirmation,omitempty"`
	Note         string `json:"note,omitempty"`
}

// StandardizeBatchPayload is the stored request for an async batch job.
type StandardizeBatchPayload struct {
	IncludeAudit bool          `json:"include_audit"`
	Records      []BatchRecord `json:"records"`
}

// StandardizeBatchResult is the stored output of a completed batch job.
type StandardizeBatchResult struct {
	Records []BatchRecord `json:"records"`
	Counts  Counts        `json:"counts"`
}

// Counts summarizes batch outcomes by winning attempt.
type Counts struct {
	Total             int `json:"total"`
	ValidatedAddress1 int `json:"validated_address1"`
	ValidatedAddress2 int `json:"validated_address2"`
	Fallback          int `json:"fallback"`
}

// CountsFromSummary converts a processor summary into stored counts.
func CountsFromSummary(s standardize.Summary) Counts {
	return Counts{
		Total:             s.Total,
		ValidatedAddress1: s.ValidatedAddress1,
		ValidatedAddress2: s.ValidatedAddress2,
		Fallback:          s.Fallback,
	}
}

// Table converts the payload into a processor table. JSON batches
// carry every context field explicitly, so all schema flags are set.
func (p *StandardizeBatchPayload) Table() *standardize.Table {
	table := &standardize.Table{
		Schema: standardize.Schema{
			HasCity:  true,
			HasState: true,
			HasZip:   true,
			HasZip4:  true,
		},
		Records: make([]standardize.Record, len(p.Records)),
	}
	for i, r := range p.Records {
		table.Records[i] = standardize.Record{
			Address1: r.Address1,
			Address2: r.Address2,
			City:     r.City,
			State:    r.State,
			Zip:      r.Zip,
			Zip4:     r.Zip4,
		}
	}
	return table
}

// RecordsFromTable converts processed rows back into wire records.
func RecordsFromTable(table *standardize.Table) []BatchRecord {
	records := make([]BatchRecord, len(table.Records))
	for i, r := range table.Records {
		records[i] = BatchRecord{
			Address1:     r.Address1,
			Address2:     r.Address2,
			City:         r.City,
			State:        r.State,
			Zip:          r.Zip,
			Zip4:         r.Zip4,
			Attempt:      r.Attempt,
			Confirmation: r.Confirmation,
			Note:         r.Note,
		}
	}
	return records
}

// BatchJob is a persisted batch standardization job.
type BatchJob struct {
	ID           uuid.UUID
	JobType      string
	Status       string
	IncludeAudit bool
	Payload      []byte
	Result       []byte
	Counts       Counts
	ErrorMessage string
	WorkerID     string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Store persists batch jobs. ClaimNext returns (nil, nil) when no
// pending job is available. ReclaimStale requeues running jobs whose
// worker has not completed them within olderThan, so a crashed worker
// does not strand its claim.
type Store interface {
	Enqueue(ctx context.Context, payload []byte, includeAudit bool) (*BatchJob, error)
	Get(ctx context.Context, id uuid.UUID) (*BatchJob, error)
	ClaimNext(ctx context.Context, workerID string) (*BatchJob, error)
	Complete(ctx context.Context, id uuid.UUID, result []byte, counts Counts) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error)
}
