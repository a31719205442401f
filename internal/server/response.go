package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lernia/lernia/internal/ingest"
	"github.com/lernia/lernia/internal/retrieve"
)

// writeJSON writes a JSON response with the given status code.
// If encoding fails after WriteHeader the status is already on the wire,
// so the error is only logged.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse represents a JSON error response. Success is always false;
// it mirrors the success envelope the mutation endpoints return so clients
// can branch on one field.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// errStatus maps pipeline errors to HTTP statuses: caller mistakes are 400,
// upstream embedding failures 502, everything else 500.
func errStatus(err error) int {
	switch {
	case errors.Is(err, retrieve.ErrEmptyQuestion),
		errors.Is(err, retrieve.ErrEmptyGrade),
		errors.Is(err, retrieve.ErrInvalidGrade),
		errors.Is(err, ingest.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, retrieve.ErrEmbeddingUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
