package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vistecsol/ha-midea-ac/internal/bridges/midea"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned by the climate API.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeValidation   = "validation_error"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInternal     = "internal_error"

	// ErrCodeApplyFailed reports that the appliance rejected or never received a change.
	ErrCodeApplyFailed = "apply_failed"

	// ErrCodeUnavailable is returned when an optional backend, such as the
	// state history store, is not configured.
	ErrCodeUnavailable = "service_unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// commandErrorStatus maps a climate command error to its HTTP status and
// error code. Unknown errors are internal.
func commandErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, midea.ErrDeviceNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, midea.ErrInvalidCommand),
		errors.Is(err, midea.ErrInvalidParameters),
		errors.Is(err, midea.ErrInvalidMode),
		errors.Is(err, midea.ErrInvalidFanMode),
		errors.Is(err, midea.ErrInvalidSwingMode):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, midea.ErrApplyFailed):
		return http.StatusBadGateway, ErrCodeApplyFailed
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
