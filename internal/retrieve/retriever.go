// Package retrieve implements the query-time retrieval step: validate the
// question, embed it, and run the approximate vector search over the
// curriculum store.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lernia/lernia/internal/curriculum"
	"github.com/lernia/lernia/internal/provider"
)

const (
	// MaxQuestionRunes bounds the text sent to the embedding model. Longer
	// questions are truncated, not rejected.
	MaxQuestionRunes = 1000

	// numCandidates is the approximate search candidate pool, TopK the
	// number of chunks returned from it.
	numCandidates = 50

	// TopK is the maximum number of chunks a retrieval returns.
	TopK = 5
)

var (
	ErrEmptyQuestion = errors.New("question must not be empty")
	ErrEmptyGrade    = errors.New("grade must not be empty")
	ErrInvalidGrade  = errors.New("grade must be a positive number for cumulative retrieval")

	// ErrEmbeddingUnavailable wraps embedding provider failures so callers
	// can map them to an upstream-failure response.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
)

// Searcher is the slice of the curriculum store retrieval needs.
type Searcher interface {
	VectorSearch(ctx context.Context, vec []float32, f curriculum.Filter, numCandidates, limit int) ([]curriculum.Scored, error)
}

// Query is one retrieval request.
type Query struct {
	Question string
	Grade    string
	Subject  string

	// Cumulative widens the grade filter to every grade from 1 up to the
	// student's grade, so earlier material stays reachable.
	Cumulative bool
}

// Retriever embeds a question and searches the curriculum store.
type Retriever struct {
	embedder provider.Embedder
	store    Searcher
	logger   *slog.Logger
}

// New creates a Retriever.
func New(embedder provider.Embedder, store Searcher, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, logger: logger}
}

// Retrieve returns up to TopK curriculum chunks relevant to the question,
// ordered by descending similarity.
func (r *Retriever) Retrieve(ctx context.Context, q Query) ([]curriculum.Scored, error) {
	question := strings.TrimSpace(q.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	grade := strings.TrimSpace(q.Grade)
	if grade == "" {
		return nil, ErrEmptyGrade
	}

	filter, err := buildFilter(grade, strings.TrimSpace(q.Subject), q.Cumulative)
	if err != nil {
		return nil, err
	}

	if runes := []rune(question); len(runes) > MaxQuestionRunes {
		question = string(runes[:MaxQuestionRunes])
	}

	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	// The search must never run with an empty vector, even if a provider
	// breaks the Embedder contract.
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty vector", ErrEmbeddingUnavailable)
	}

	results, err := r.store.VectorSearch(ctx, vec, filter, numCandidates, TopK)
	if err != nil {
		return nil, fmt.Errorf("searching curriculum: %w", err)
	}

	r.logger.Debug("curriculum retrieved",
		"grades", filter.Grades,
		"subject", filter.Subject,
		"results", len(results),
	)
	return results, nil
}

// buildFilter expands a cumulative grade "3" into {"1", "2", "3"}; an exact
// grade passes through as-is, numeric or not.
func buildFilter(grade, subject string, cumulative bool) (curriculum.Filter, error) {
	f := curriculum.Filter{Subject: subject}
	if !cumulative {
		f.Grades = []string{grade}
		return f, nil
	}

	n, err := strconv.Atoi(grade)
	if err != nil || n < 1 {
		return curriculum.Filter{}, fmt.Errorf("%w: %q", ErrInvalidGrade, grade)
	}
	f.Grades = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		f.Grades = append(f.Grades, strconv.Itoa(i))
	}
	return f, nil
}
