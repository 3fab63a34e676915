package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/vor/internal/domain"
	"github.com/dukerupert/vor/internal/middleware"
)

// RespondJSON writes v as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError writes a structured JSON error response derived from
// err and logs the underlying cause. Validation errors include a
// per-field breakdown.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	if domain.IsValidationError(err) {
		code = domain.EINVALID
		message = err.Error()
	}
	status := ErrorStatus(code)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"status", status,
	}
	if status >= 500 {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	errBody := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if fields := domain.GetValidationFields(err); len(fields) > 0 {
		errBody["fields"] = fields
	}

	RespondJSON(w, status, map[string]interface{}{"error": errBody})
}

// ErrorStatus maps a domain error code to an HTTP status code.
func ErrorStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	case domain.ENOTIMPL:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.WrapError(err, domain.EINVALID, "handler.decode", "invalid JSON request body")
	}
	return nil
}
