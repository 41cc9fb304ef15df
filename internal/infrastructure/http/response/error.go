// Package response writes JSON success and error envelopes.
package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rezkam/demand/internal/domain"
)

// Error codes.
const (
	CodeValidation              = "VALIDATION_ERROR"
	CodeNotFound                = "NOT_FOUND"
	CodeSourceUnavailable       = "SOURCE_UNAVAILABLE"
	CodeAggregationInconsistent = "AGGREGATION_INCONSISTENT"
	CodeInvalidSourceData       = "INVALID_SOURCE_DATA"
	CodeInternal                = "INTERNAL_ERROR"
	CodeTimeout                 = "TIMEOUT"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []ErrorField `json:"details"`
}

// ErrorField describes a field-specific error.
type ErrorField struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ValidationError sends a 400 validation error with field details.
func ValidationError(w http.ResponseWriter, field, issue string) {
	write(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
		Code:    CodeValidation,
		Message: "validation failed",
		Details: []ErrorField{{Field: field, Issue: issue}},
	}})
}

// NotFound sends a 404 Not Found error.
func NotFound(w http.ResponseWriter, resource string) {
	Error(w, CodeNotFound, resource+" not found", http.StatusNotFound)
}

// InternalError logs err and sends a generic 500.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		slog.ErrorContext(r.Context(), "Internal server error", "error", err)
	}
	Error(w, CodeInternal, "an internal error occurred", http.StatusInternalServerError)
}

// Error sends an error response without field details.
func Error(w http.ResponseWriter, code, message string, statusCode int) {
	write(w, statusCode, ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Details: []ErrorField{}}})
}

// FromDomainError maps engine errors to HTTP responses.
func FromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		consistency *domain.AggregationConsistencyError
		load        *domain.LoadError
		extraction  *domain.ExtractionError
	)

	switch {
	case errors.As(err, &consistency):
		slog.ErrorContext(r.Context(), "Aggregation inconsistent",
			"expected", consistency.Expected,
			"actual", consistency.Actual)
		Error(w, CodeAggregationInconsistent, consistency.Error(), http.StatusInternalServerError)

	case errors.As(err, &load):
		slog.WarnContext(r.Context(), "Directory unavailable", "op", load.Op, "attempts", load.Attempts, "error", load.Err)
		Error(w, CodeSourceUnavailable, "demand source unavailable, try again later", http.StatusServiceUnavailable)

	case errors.As(err, &extraction):
		slog.ErrorContext(r.Context(), "Task data rejected", "task_id", extraction.TaskID, "error", extraction)
		Error(w, CodeInvalidSourceData, extraction.Error(), http.StatusUnprocessableEntity)

	case errors.Is(err, domain.ErrInvalidStaffFilterMode):
		ValidationError(w, "staffMode", "must be one of all, specific, none")
	case errors.Is(err, domain.ErrInvalidMonthRange):
		ValidationError(w, "monthRange", "start must be >= 0 and <= end")
	case errors.Is(err, domain.ErrInvalidMonthKey):
		ValidationError(w, "month", "must be YYYY-MM")
	case errors.Is(err, domain.ErrInvalidDimension):
		ValidationError(w, "dimension", "must be skill or client")

	case errors.Is(err, domain.ErrCellNotFound):
		NotFound(w, "cell")
	case errors.Is(err, domain.ErrNotFound):
		NotFound(w, "resource")

	case errors.Is(err, context.DeadlineExceeded):
		Error(w, CodeTimeout, "matrix load timed out", http.StatusGatewayTimeout)

	default:
		InternalError(w, r, err)
	}
}
