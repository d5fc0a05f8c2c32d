package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fleetrelay/fleetrelay/internal/errs"
	"github.com/fleetrelay/fleetrelay/internal/log"
)

// APIError is a structured error response, grounded on the teacher's
// internal/api errors.go convention: a machine-readable code, a
// human-readable message, and the request id for support/debugging.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func (e *APIError) Error() string {
	return e.Message
}

var (
	errNotFound = &APIError{Code: "NOT_FOUND", Message: "resource not found"}
	errBadInput = &APIError{Code: "INVALID_INPUT", Message: "invalid input parameters"}
	errInternal = &APIError{Code: "INTERNAL_SERVER_ERROR", Message: "an internal error occurred"}
)

// respondError sends a structured JSON error response, filling in the
// request id from context.
func respondError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError) {
	response := &APIError{
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, apiErr.Message, statusCode)
	}
}

// respondJSON sends a 200 (or the given status) JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// coordinatorError maps a coordinator error into the right status code and
// structured body (spec §7's taxonomy surfaced over HTTP).
func coordinatorError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		respondError(w, r, http.StatusNotFound, errNotFound)
	case errors.Is(err, errs.ErrAlreadyEnded):
		respondError(w, r, http.StatusConflict, &APIError{Code: "ALREADY_ENDED", Message: err.Error()})
	default:
		if na, ok := errs.AsNotAvailable(err); ok {
			respondError(w, r, http.StatusConflict, &APIError{Code: "NOT_AVAILABLE", Message: na.Error()})
			return
		}
		if pv, ok := errs.AsPolicyViolation(err); ok {
			respondError(w, r, http.StatusUnprocessableEntity, &APIError{Code: "POLICY_VIOLATION", Message: pv.Error()})
			return
		}
		var rb *errs.RolledBack
		if errors.As(err, &rb) {
			respondError(w, r, http.StatusInternalServerError, &APIError{Code: "ROLLED_BACK", Message: rb.Error()})
			return
		}
		respondError(w, r, http.StatusInternalServerError, errInternal)
	}
}
