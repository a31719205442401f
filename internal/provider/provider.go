// Package provider wraps the external AI providers behind two small
// interfaces: Embedder turns text into a dense vector, Generator streams a
// tutoring answer. Implementations exist for Gemini (the default) and
// OpenAI, selected by configuration.
package provider

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one conversation turn passed to the generation call. The pipeline
// does not persist turns; callers supply any prior turns per request.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Embedder computes a fixed-width embedding vector for text.
//
// A nil error guarantees a non-empty vector. Callers decide how to handle
// failure: ingestion-side callers log and skip the document (the next
// backfill run retries it), query-side callers abort the request because
// retrieval cannot proceed without a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerateRequest carries everything the generation call needs for one
// exchange: the assembled prompt, the system instructions and any prior
// turns, oldest first.
type GenerateRequest struct {
	Prompt            string
	SystemInstruction string
	History           []Turn
}

// DeltaFunc receives each partial text fragment in provider emission order.
// Returning an error aborts the stream.
type DeltaFunc func(ctx context.Context, text string) error

// Generator streams a model answer fragment by fragment.
type Generator interface {
	Stream(ctx context.Context, req GenerateRequest, onDelta DeltaFunc) error
}
