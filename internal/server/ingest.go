package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/lernia/lernia/internal/log"
)

// maxUploadBytes caps an ingestion payload. Curriculum files are text; a
// term's worth of material stays far under this.
const maxUploadBytes = 32 << 20

// Ingestor parses and stores a curriculum payload.
type Ingestor interface {
	Ingest(ctx context.Context, grade, subject, term string, payload []byte, replace bool) (int, error)
}

// IngestHandler handles curriculum uploads.
type IngestHandler struct {
	ingestor Ingestor
	logger   log.Logger
}

// NewIngestHandler creates an ingest handler.
func NewIngestHandler(ingestor Ingestor, logger log.Logger) *IngestHandler {
	return &IngestHandler{ingestor: ingestor, logger: logger}
}

// RegisterRoutes registers the ingest route on the given mux.
func (h *IngestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ingest", h.handleIngest)
}

// handleIngest accepts a multipart form with the scope fields "grade",
// "subject", "term", an optional "replace" flag, and the JSON document
// payload in the "file" part.
func (h *IngestHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "expected multipart form: "+err.Error())
		return
	}

	grade := r.FormValue("grade")
	subject := r.FormValue("subject")
	if grade == "" || subject == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "grade and subject are required")
		return
	}
	term := r.FormValue("term")

	replace := false
	if v := r.FormValue("replace"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "replace must be a boolean")
			return
		}
		replace = parsed
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "file part is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "reading file: "+err.Error())
		return
	}

	inserted, err := h.ingestor.Ingest(r.Context(), grade, subject, term, payload, replace)
	if err != nil {
		h.logger.Error("ingestion failed", "error", err, "grade", grade, "subject", subject)
		writeError(w, errStatus(err), "ingestion_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"inserted": inserted,
		"message":  fmt.Sprintf("inserted %d documents, run backfill to embed them", inserted),
	})
}
