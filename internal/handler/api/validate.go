package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/vor/internal/address"
	"github.com/dukerupert/vor/internal/domain"
	"github.com/dukerupert/vor/internal/handler"
	"github.com/dukerupert/vor/internal/jobs"
	"github.com/dukerupert/vor/internal/standardize"
	"github.com/dukerupert/vor/internal/usps"
)

// ValidateHandler handles single-address validation requests
type ValidateHandler struct {
	validator address.Validator
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewValidateHandler creates a new single-address validation handler
func NewValidateHandler(v address.Validator, logger *slog.Logger) *ValidateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidateHandler{
		validator: v,
		validate:  validator.New(),
		logger:    logger,
	}
}

// ValidateRequest is the payload for POST /api/v1/addresses/validate
type ValidateRequest struct {
	Address1 string `json:"address1" validate:"required"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	State    string `json:"state" validate:"omitempty,alpha,len=2"`
	Zip      string `json:"zip" validate:"omitempty,numeric,len=5"`
	Zip4     string `json:"zip4" validate:"omitempty,numeric,len=4"`
}

// ValidateResponse carries the standardized record plus whether a
// deliverable candidate backed it. validated=false means the record
// fell back to uppercased input.
type ValidateResponse struct {
	Record    jobs.BatchRecord `json:"record"`
	Validated bool             `json:"validated"`
}

// Validate handles POST /api/v1/addresses/validate
func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		handler.RespondError(w, r, requestValidationError("address.validate", err))
		return
	}

	schema := standardize.Schema{
		HasCity:  true,
		HasState: true,
		HasZip:   true,
		HasZip4:  true,
		Audit:    true,
	}
	record := standardize.Record{
		Address1: req.Address1,
		Address2: req.Address2,
		City:     req.City,
		State:    req.State,
		Zip:      req.Zip,
		Zip4:     req.Zip4,
	}

	n := standardize.NewNormalizer(h.validator, schema, h.logger)
	attempt, err := n.Normalize(r.Context(), &record)
	if err != nil {
		handler.RespondError(w, r, providerError("address.validate", err))
		return
	}

	handler.RespondJSON(w, http.StatusOK, ValidateResponse{
		Record: jobs.BatchRecord{
			Address1:     record.Address1,
			Address2:     record.Address2,
			City:         record.City,
			State:        record.State,
			Zip:          record.Zip,
			Zip4:         record.Zip4,
			Attempt:      record.Attempt,
			Confirmation: record.Confirmation,
			Note:         record.Note,
		},
		Validated: attempt != standardize.AttemptNone,
	})
}

// requestValidationError converts go-playground validation failures
// into a domain validation error with per-field messages.
func requestValidationError(op string, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return domain.WrapError(err, domain.EINVALID, op, "invalid request")
	}

	var out error
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		message := "failed " + fe.Tag() + " validation"
		if out == nil {
			out = domain.NewValidationError(op, field, message)
		} else {
			out = domain.AddFieldError(out, field, message)
		}
	}
	return out
}

// providerError maps pipeline failures to domain errors. Token
// failures are credential problems on our side, not the caller's.
func providerError(op string, err error) error {
	if usps.IsTokenError(err) {
		return domain.WrapError(err, domain.EINTERNAL, op, "address provider authentication failed")
	}
	return domain.WrapError(err, domain.EINTERNAL, op, "address validation failed")
}
