package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/lernia/lernia/internal/curriculum"
	"github.com/lernia/lernia/internal/log"
	"github.com/lernia/lernia/internal/prompt"
	"github.com/lernia/lernia/internal/provider"
	"github.com/lernia/lernia/internal/retrieve"
)

// Retriever is the retrieval step as the handlers consume it.
type Retriever interface {
	Retrieve(ctx context.Context, q retrieve.Query) ([]curriculum.Scored, error)
}

// Answerer streams the generated answer and returns the full text plus the
// extended conversation.
type Answerer interface {
	Answer(ctx context.Context, question, prompt string, history []provider.Turn, onDelta provider.DeltaFunc) (string, []provider.Turn, error)
}

// flexBool accepts JSON booleans and the strings "true"/"false", since
// clients that build the request from form values send the string form.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		parsed, err := strconv.ParseBool(t)
		if err != nil {
			return fmt.Errorf("cumulative must be a boolean, got %q", t)
		}
		*b = flexBool(parsed)
	default:
		return fmt.Errorf("cumulative must be a boolean")
	}
	return nil
}

// askRequest is the body of POST /api/ask and POST /api/search.
type askRequest struct {
	Question   string          `json:"question" validate:"required"`
	Grade      string          `json:"grade" validate:"required"`
	Subject    string          `json:"subject"`
	Cumulative flexBool        `json:"cumulative"`
	History    []provider.Turn `json:"history" validate:"max=40"`
}

// QueryHandler handles the ask and search endpoints.
type QueryHandler struct {
	retriever Retriever
	answerer  Answerer
	validate  *validator.Validate
	tracer    trace.Tracer
	logger    log.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(retriever Retriever, answerer Answerer, logger log.Logger) *QueryHandler {
	return &QueryHandler{
		retriever: retriever,
		answerer:  answerer,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		tracer:    otel.Tracer("lernia/server"),
		logger:    logger,
	}
}

// RegisterRoutes registers query routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", h.handleAsk)
	mux.HandleFunc("POST /api/search", h.handleSearch)
}

func (h *QueryHandler) decode(r *http.Request) (askRequest, error) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return askRequest{}, fmt.Errorf("decoding request body: %w", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return askRequest{}, fmt.Errorf("validating request: %w", err)
	}
	return req, nil
}

// handleAsk runs the full pipeline and streams the answer as plain text.
// Fragments are flushed as they arrive; there is no trailing envelope, the
// body ends when the stream ends. Errors before the first byte map to JSON
// error responses; a failure mid-stream can only cut the body short.
func (h *QueryHandler) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer cannot stream")
		return
	}

	ctx := r.Context()

	ctx, span := h.tracer.Start(ctx, "ask.retrieve")
	results, err := h.retriever.Retrieve(ctx, retrieve.Query{
		Question:   req.Question,
		Grade:      req.Grade,
		Subject:    req.Subject,
		Cumulative: bool(req.Cumulative),
	})
	span.End()
	if err != nil {
		h.logger.Error("retrieval failed", "error", err)
		writeError(w, errStatus(err), "retrieval_failed", err.Error())
		return
	}

	tutorPrompt := prompt.Assemble(results, req.Question, req.Subject)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	streamed := false
	ctx, span = h.tracer.Start(ctx, "ask.generate")
	defer span.End()
	_, _, err = h.answerer.Answer(ctx, req.Question, tutorPrompt, req.History,
		func(_ context.Context, text string) error {
			streamed = true
			if _, err := fmt.Fprint(w, text); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected during generation")
			return
		}
		h.logger.Error("generation failed", "error", err, "streamed", streamed)
		if !streamed {
			// Headers are set but unsent; the error response still works.
			w.Header().Del("Content-Type")
			writeError(w, http.StatusBadGateway, "generation_failed", err.Error())
		}
		return
	}
}

// handleSearch runs retrieval only and returns the scored chunks as a bare
// JSON array, an empty array when nothing matched.
func (h *QueryHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	results, err := h.retriever.Retrieve(r.Context(), retrieve.Query{
		Question:   req.Question,
		Grade:      req.Grade,
		Subject:    req.Subject,
		Cumulative: bool(req.Cumulative),
	})
	if err != nil {
		h.logger.Error("retrieval failed", "error", err)
		writeError(w, errStatus(err), "retrieval_failed", err.Error())
		return
	}

	if results == nil {
		results = []curriculum.Scored{}
	}
	writeJSON(w, http.StatusOK, results)
}
