package app

import (
	"context"
	"fmt"

	"github.com/lernia/lernia/db"
	"github.com/lernia/lernia/internal/answer"
	"github.com/lernia/lernia/internal/backfill"
	"github.com/lernia/lernia/internal/config"
	"github.com/lernia/lernia/internal/curriculum"
	"github.com/lernia/lernia/internal/database"
	"github.com/lernia/lernia/internal/ingest"
	"github.com/lernia/lernia/internal/log"
	"github.com/lernia/lernia/internal/observability"
	"github.com/lernia/lernia/internal/provider"
	"github.com/lernia/lernia/internal/retrieve"
)

// aiProvider is what a provider implementation must cover: embeddings for
// the write and query paths, generation for answers.
type aiProvider interface {
	provider.Embedder
	provider.Generator
}

// Setup creates and initializes the application. On failure everything
// already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.OTLPEndpoint,
			ServiceName: "lernia",
			Environment: cfg.Environment,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.otelShutdown = shutdown
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.Pool = pool

	store, err := curriculum.NewStore(pool, cfg.EmbedderDimension, logger)
	if err != nil {
		return nil, fmt.Errorf("creating curriculum store: %w", err)
	}
	a.Store = store

	prov, err := provideAI(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a.Retriever = retrieve.New(prov, store, logger)
	a.Answers = answer.New(prov, logger)
	a.Ingestor = ingest.New(store, logger)
	a.Backfill = backfill.New(store, prov, backfill.Config{}, logger)

	return a, nil
}

// provideAI constructs the configured AI provider. Gemini is the default;
// OpenAI covers deployments without Gemini access.
func provideAI(ctx context.Context, cfg *config.Config, logger log.Logger) (aiProvider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		p, err := provider.NewOpenAI(provider.OpenAIConfig{
			APIKey:     cfg.APIKey(),
			Model:      cfg.Model,
			EmbedModel: cfg.EmbedderModel,
			Dimension:  cfg.EmbedderDimension,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating openai provider: %w", err)
		}
		logger.Info("using openai provider", "model", cfg.Model, "embedder", cfg.EmbedderModel)
		return p, nil

	default: // gemini
		p, err := provider.NewGemini(ctx, provider.GeminiConfig{
			APIKey:     cfg.APIKey(),
			Model:      cfg.Model,
			EmbedModel: cfg.EmbedderModel,
			Dimension:  cfg.EmbedderDimension,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating gemini provider: %w", err)
		}
		logger.Info("using gemini provider", "model", cfg.Model, "embedder", cfg.EmbedderModel)
		return p, nil
	}
}
