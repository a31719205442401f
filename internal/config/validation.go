package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration and returns the first problem found.
// Called by Load before the config is handed to any component.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderGemini, ProviderOpenAI)
	}

	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model is empty", ErrInvalidModel)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model is empty", ErrInvalidModel)
	}

	// pgvector rejects zero-width vectors; anything above 16000 exceeds the
	// column type limit.
	if c.EmbedderDimension < 1 || c.EmbedderDimension > 16000 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, c.EmbedderDimension)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgres)
	}
	switch c.PostgresSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%w: sslmode %q", ErrInvalidPostgres, c.PostgresSSLMode)
	}

	if c.APIKey() == "" {
		return fmt.Errorf("%w for provider %q", ErrMissingAPIKey, c.Provider)
	}

	return nil
}
