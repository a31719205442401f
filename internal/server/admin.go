package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/lernia/lernia/internal/backfill"
	"github.com/lernia/lernia/internal/curriculum"
	"github.com/lernia/lernia/internal/log"
)

// Backfiller embeds pending chunks and reports what was done.
type Backfiller interface {
	Run(ctx context.Context) (backfill.Result, error)
}

// CorpusAdmin is the administrative slice of the curriculum store: corpus
// overview and ANN index maintenance.
type CorpusAdmin interface {
	Structure(ctx context.Context) ([]curriculum.ScopeSummary, error)
	EnsureIndex(ctx context.Context, replace bool) error
}

// AdminHandler handles the operational endpoints.
type AdminHandler struct {
	backfiller Backfiller
	corpus     CorpusAdmin
	logger     log.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(backfiller Backfiller, corpus CorpusAdmin, logger log.Logger) *AdminHandler {
	return &AdminHandler{backfiller: backfiller, corpus: corpus, logger: logger}
}

// RegisterRoutes registers admin routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/backfill", h.handleBackfill)
	mux.HandleFunc("GET /api/structure", h.handleStructure)
	mux.HandleFunc("POST /api/structure", h.handleEnsureIndex)
}

// handleBackfill runs one backfill pass synchronously. The run is
// idempotent, so a retried request cannot double-embed anything.
func (h *AdminHandler) handleBackfill(w http.ResponseWriter, r *http.Request) {
	result, err := h.backfiller.Run(r.Context())
	if err != nil {
		h.logger.Error("backfill failed", "error", err)
		writeError(w, errStatus(err), "backfill_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"updated":   result.Updated,
		"remaining": result.Remaining,
	})
}

// handleStructure returns the per-scope corpus summary.
func (h *AdminHandler) handleStructure(w http.ResponseWriter, r *http.Request) {
	scopes, err := h.corpus.Structure(r.Context())
	if err != nil {
		h.logger.Error("structure listing failed", "error", err)
		writeError(w, errStatus(err), "structure_failed", err.Error())
		return
	}
	if scopes == nil {
		scopes = []curriculum.ScopeSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"scopes":  scopes,
		"count":   len(scopes),
	})
}

// handleEnsureIndex creates the ANN index if absent; with replace=true it
// drops and rebuilds it, the recovery path for a mis-parameterized index.
func (h *AdminHandler) handleEnsureIndex(w http.ResponseWriter, r *http.Request) {
	replace := false
	if v := r.FormValue("replace"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "replace must be a boolean")
			return
		}
		replace = parsed
	}

	if err := h.corpus.EnsureIndex(r.Context(), replace); err != nil {
		h.logger.Error("index maintenance failed", "error", err, "replace", replace)
		writeError(w, errStatus(err), "index_failed", err.Error())
		return
	}

	msg := "index ensured"
	if replace {
		msg = "index rebuilt"
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}
