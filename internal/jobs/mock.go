package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/vor/internal/domain"
)

// MockStore is an in-memory Store for tests and single-process use.
type MockStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*BatchJob
	// order of insertion, oldest first
	queue []uuid.UUID
}

// Compile-time check that MockStore implements Store.
var _ Store = (*MockStore)(nil)

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{jobs: make(map[uuid.UUID]*BatchJob)}
}

func (s *MockStore) Enqueue(ctx context.Context, payload []byte, includeAudit bool) (*BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &BatchJob{
		ID:           uuid.New(),
		JobType:      JobTypeStandardizeBatch,
		Status:       StatusPending,
		IncludeAudit: includeAudit,
		Payload:      payload,
		CreatedAt:    time.Now(),
	}
	s.jobs[job.ID] = job
	s.queue = append(s.queue, job.ID)

	copied := *job
	return &copied, nil
}

func (s *MockStore) Get(ctx context.Context, id uuid.UUID) (*BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, &domain.Error{Code: domain.ENOTFOUND, Message: "batch job not found", Op: "mock_store.get"}
	}
	copied := *job
	return &copied, nil
}

func (s *MockStore) ClaimNext(ctx context.Context, workerID string) (*BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.queue {
		job := s.jobs[id]
		if job.Status != StatusPending {
			continue
		}
		now := time.Now()
		job.Status = StatusRunning
		job.WorkerID = workerID
		job.StartedAt = &now

		copied := *job
		return &copied, nil
	}
	return nil, nil
}

func (s *MockStore) Complete(ctx context.Context, id uuid.UUID, result []byte, counts Counts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return &domain.Error{Code: domain.ENOTFOUND, Message: "batch job not found", Op: "mock_store.complete"}
	}
	now := time.Now()
	job.Status = StatusCompleted
	job.Result = result
	job.Counts = counts
	job.CompletedAt = &now
	return nil
}

func (s *MockStore) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	reclaimed := 0
	for _, job := range s.jobs {
		if job.Status != StatusRunning || job.StartedAt == nil || job.StartedAt.After(cutoff) {
			continue
		}
		job.Status = StatusPending
		job.WorkerID = ""
		job.StartedAt = nil
		reclaimed++
	}
	return reclaimed, nil
}

func (s *MockStore) Fail(ctx context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return &domain.Error{Code: domain.ENOTFOUND, Message: "batch job not found", Op: "mock_store.fail"}
	}
	now := time.Now()
	job.Status = StatusFailed
	job.ErrorMessage = message
	job.CompletedAt = &now
	return nil
}
