package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/internmatch/internal/apperror"
)

// ErrorResponse is the standard error shape returned by every endpoint, so
// clients always know what fields to expect.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response with the given status code. Headers must
// be set before the first body write.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status code. This is the only
// place that translation happens; services never see HTTP.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		kind := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			kind = "validation_error"
		case errors.Is(err, apperror.ErrInvalidState):
			status = http.StatusBadRequest
			kind = "invalid_state"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			kind = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			kind = "conflict"
		case errors.Is(err, apperror.ErrNotConnected):
			status = http.StatusConflict
			kind = "not_connected"
		case errors.Is(err, apperror.ErrExchange):
			status = http.StatusBadGateway
			kind = "authorization_exchange_failed"
		case errors.Is(err, apperror.ErrProvider), errors.Is(err, apperror.ErrNoMeetingLink):
			status = http.StatusBadGateway
			kind = "provider_error"
		case errors.Is(err, apperror.ErrConfig):
			status = http.StatusInternalServerError
			kind = "configuration_error"
		}

		writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
		return
	}

	// Unknown error: never leak internals to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
