// Package backfill computes embeddings for stored curriculum chunks that
// do not have one yet. Runs are idempotent and resumable: chunks whose
// embedding fails stay pending and the next run picks them up again.
package backfill

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lernia/lernia/internal/curriculum"
	"github.com/lernia/lernia/internal/provider"
)

const (
	defaultPageSize = 100

	// defaultRate keeps embedding calls under typical provider quotas.
	defaultRate  = rate.Limit(5)
	defaultBurst = 5
)

// Store is the slice of the curriculum store backfill needs.
type Store interface {
	MissingEmbeddings(ctx context.Context, after uuid.UUID, limit int) ([]curriculum.Chunk, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, vec []float32) error
	CountMissingEmbeddings(ctx context.Context) (int, error)
}

// Result summarizes one backfill run.
type Result struct {
	Updated   int `json:"updated"`
	Remaining int `json:"remaining"`
}

// Config tunes a Runner. Zero values select the defaults.
type Config struct {
	PageSize int
	Rate     rate.Limit
	Burst    int
}

// Runner walks pending chunks page by page and persists their embeddings.
type Runner struct {
	store    Store
	embedder provider.Embedder
	limiter  *rate.Limiter
	pageSize int
	logger   *slog.Logger
}

// New creates a Runner.
func New(store Store, embedder provider.Embedder, cfg Config, logger *slog.Logger) *Runner {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Rate <= 0 {
		cfg.Rate = defaultRate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    store,
		embedder: embedder,
		limiter:  rate.NewLimiter(cfg.Rate, cfg.Burst),
		pageSize: cfg.PageSize,
		logger:   logger,
	}
}

// Run embeds every pending chunk it can and reports how many were updated
// and how many remain pending. A chunk that fails to embed or persist is
// logged and skipped; the keyset cursor moves past it so one bad chunk
// cannot stall the run.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var (
		after   uuid.UUID
		updated int
	)

	for {
		chunks, err := r.store.MissingEmbeddings(ctx, after, r.pageSize)
		if err != nil {
			return Result{Updated: updated}, fmt.Errorf("listing pending chunks: %w", err)
		}
		if len(chunks) == 0 {
			break
		}

		for _, c := range chunks {
			after = c.ID

			if err := r.limiter.Wait(ctx); err != nil {
				return Result{Updated: updated}, fmt.Errorf("waiting for rate limiter: %w", err)
			}

			vec, err := r.embedder.Embed(ctx, c.Content)
			if err != nil {
				if ctx.Err() != nil {
					return Result{Updated: updated}, ctx.Err()
				}
				r.logger.Warn("embedding failed, chunk stays pending",
					"chunk_id", c.ID, "error", err)
				continue
			}

			if err := r.store.UpdateEmbedding(ctx, c.ID, vec); err != nil {
				r.logger.Warn("persisting embedding failed, chunk stays pending",
					"chunk_id", c.ID, "error", err)
				continue
			}
			updated++
		}

		if len(chunks) < r.pageSize {
			break
		}
	}

	remaining, err := r.store.CountMissingEmbeddings(ctx)
	if err != nil {
		return Result{Updated: updated}, fmt.Errorf("counting pending chunks: %w", err)
	}

	r.logger.Info("backfill finished", "updated", updated, "remaining", remaining)
	return Result{Updated: updated, Remaining: remaining}, nil
}
