// Package app assembles the tutoring pipeline: configuration, database,
// AI provider, and the services built on them.
package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lernia/lernia/internal/answer"
	"github.com/lernia/lernia/internal/backfill"
	"github.com/lernia/lernia/internal/config"
	"github.com/lernia/lernia/internal/curriculum"
	"github.com/lernia/lernia/internal/ingest"
	"github.com/lernia/lernia/internal/log"
	"github.com/lernia/lernia/internal/retrieve"
)

// App holds the initialized application components. Construct with Setup
// and release with Close.
type App struct {
	Config *config.Config
	Logger log.Logger

	Pool  *pgxpool.Pool
	Store *curriculum.Store

	Retriever *retrieve.Retriever
	Answers   *answer.Service
	Ingestor  *ingest.Ingestor
	Backfill  *backfill.Runner

	otelShutdown func(context.Context) error
}

// Close releases application resources in reverse construction order.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
		a.Pool = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := a.otelShutdown(ctx)
		a.otelShutdown = nil
		if err != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}
	return nil
}
