package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukerupert/vor/internal/address"
	"github.com/dukerupert/vor/internal/domain"
	"github.com/dukerupert/vor/internal/handler"
	"github.com/dukerupert/vor/internal/jobs"
	"github.com/dukerupert/vor/internal/standardize"
	"github.com/dukerupert/vor/internal/telemetry"
)

// BatchHandler handles batch standardization requests
type BatchHandler struct {
	validator address.Validator
	store     jobs.Store
	metrics   *telemetry.Pipeline
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewBatchHandler creates a new batch handler. The store may be nil
// when the async endpoints are not registered.
func NewBatchHandler(v address.Validator, store jobs.Store, metrics *telemetry.Pipeline, logger *slog.Logger) *BatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchHandler{
		validator: v,
		store:     store,
		metrics:   metrics,
		validate:  validator.New(),
		logger:    logger,
	}
}

// BatchRequest is the payload for POST /api/v1/batches and
// POST /api/v1/batches/async
type BatchRequest struct {
	IncludeAudit bool               `json:"include_audit"`
	Records      []jobs.BatchRecord `json:"records" validate:"required,min=1,max=10000"`
}

// BatchJobResponse describes a persisted batch job.
type BatchJobResponse struct {
	ID           uuid.UUID          `json:"id"`
	Status       string             `json:"status"`
	IncludeAudit bool               `json:"include_audit"`
	Counts       *jobs.Counts       `json:"counts,omitempty"`
	Records      []jobs.BatchRecord `json:"records,omitempty"`
	Error        string             `json:"error,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	StartedAt    *time.Time         `json:"started_at,omitempty"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
}

// Process handles POST /api/v1/batches
func (h *BatchHandler) Process(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBatch(w, r, "batch.process")
	if !ok {
		return
	}

	payload := jobs.StandardizeBatchPayload{
		IncludeAudit: req.IncludeAudit,
		Records:      req.Records,
	}

	p := standardize.NewProcessor(h.validator, req.IncludeAudit, h.logger, h.metrics)
	table, summary, err := p.Process(r.Context(), payload.Table())
	if err != nil {
		handler.RespondError(w, r, providerError("batch.process", err))
		return
	}

	handler.RespondJSON(w, http.StatusOK, jobs.StandardizeBatchResult{
		Records: jobs.RecordsFromTable(table),
		Counts:  jobs.CountsFromSummary(summary),
	})
}

// Enqueue handles POST /api/v1/batches/async
func (h *BatchHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBatch(w, r, "batch.enqueue")
	if !ok {
		return
	}

	payload, err := json.Marshal(jobs.StandardizeBatchPayload{
		IncludeAudit: req.IncludeAudit,
		Records:      req.Records,
	})
	if err != nil {
		handler.RespondError(w, r, domain.Internal(err, "batch.enqueue", "failed to encode batch payload"))
		return
	}

	job, err := h.store.Enqueue(r.Context(), payload, req.IncludeAudit)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	h.logger.Info("batch job enqueued", "job_id", job.ID, "records", len(req.Records))

	handler.RespondJSON(w, http.StatusAccepted, BatchJobResponse{
		ID:           job.ID,
		Status:       job.Status,
		IncludeAudit: job.IncludeAudit,
		CreatedAt:    job.CreatedAt,
	})
}

// Get handles GET /api/v1/batches/{id}
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handler.RespondError(w, r, domain.Errorf(domain.EINVALID, "batch.get", "invalid batch job id"))
		return
	}

	job, err := h.store.Get(r.Context(), id)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	resp := BatchJobResponse{
		ID:           job.ID,
		Status:       job.Status,
		IncludeAudit: job.IncludeAudit,
		Error:        job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
	}

	if job.Status == jobs.StatusCompleted {
		resp.Counts = &job.Counts
		var result jobs.StandardizeBatchResult
		if err := json.Unmarshal(job.Result, &result); err == nil {
			resp.Records = result.Records
		} else {
			h.logger.Error("failed to decode stored batch result", "job_id", job.ID, "error", err)
		}
	}

	handler.RespondJSON(w, http.StatusOK, resp)
}

func (h *BatchHandler) decodeBatch(w http.ResponseWriter, r *http.Request, op string) (BatchRequest, bool) {
	var req BatchRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.RespondError(w, r, err)
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		handler.RespondError(w, r, requestValidationError(op, err))
		return req, false
	}
	return req, true
}
