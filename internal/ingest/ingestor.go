// Package ingest loads curriculum documents into the store. Documents
// arrive as JSON, either a single object or an array; embeddings are not
// computed here, a later backfill run fills them in.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lernia/lernia/internal/curriculum"
)

// ErrMalformedPayload marks JSON that parses as neither a document nor a
// document array.
var ErrMalformedPayload = errors.New("malformed document payload")

// Store is the slice of the curriculum store ingestion needs.
type Store interface {
	DeleteScope(ctx context.Context, grade, subject, term string) (int64, error)
	InsertMany(ctx context.Context, chunks []curriculum.Chunk) (int, error)
}

// Ingestor parses and stores curriculum documents.
type Ingestor struct {
	store  Store
	logger *slog.Logger
}

// New creates an Ingestor.
func New(store Store, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{store: store, logger: logger}
}

// Ingest parses payload and inserts every document under the given scope.
// The grade, subject and term arguments are stamped onto every document,
// overriding whatever the payload carries. With replace set, documents
// already stored under the same scope are deleted first.
//
// An empty document set is a no-op even when replace is set, so a bad
// upload cannot wipe a scope.
func (i *Ingestor) Ingest(ctx context.Context, grade, subject, term string, payload []byte, replace bool) (int, error) {
	docs, err := parseDocuments(payload)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		i.logger.Info("no documents in payload, nothing ingested",
			"grade", grade, "subject", subject, "term", term)
		return 0, nil
	}

	for idx := range docs {
		docs[idx].Grade = grade
		docs[idx].Subject = subject
		docs[idx].Term = term
	}

	if replace {
		deleted, err := i.store.DeleteScope(ctx, grade, subject, term)
		if err != nil {
			return 0, fmt.Errorf("replacing scope: %w", err)
		}
		i.logger.Info("scope cleared for replacement",
			"grade", grade, "subject", subject, "term", term, "deleted", deleted)
	}

	inserted, err := i.store.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("inserting documents: %w", err)
	}

	i.logger.Info("documents ingested",
		"grade", grade, "subject", subject, "term", term, "inserted", inserted)
	return inserted, nil
}

// parseDocuments accepts a JSON array of documents or a single document
// object.
func parseDocuments(payload []byte) ([]curriculum.Chunk, error) {
	var docs []curriculum.Chunk
	if err := json.Unmarshal(payload, &docs); err == nil {
		return docs, nil
	}

	var single curriculum.Chunk
	if err := json.Unmarshal(payload, &single); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return []curriculum.Chunk{single}, nil
}
