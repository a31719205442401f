// Package config loads and validates application configuration.
//
// Sources, highest priority first:
//  1. Environment variables (LERNIA_* overrides, DATABASE_URL, API keys)
//  2. Config file (./config.yaml or ~/.lernia/config.yaml)
//  3. Defaults
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the selected provider has no API key set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates an unsupported AI provider name.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModel indicates an empty or malformed model identifier.
	ErrInvalidModel = errors.New("invalid model name")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidPostgres indicates the PostgreSQL settings are unusable.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

const (
	// DefaultEmbedderModel outputs 3072 dimensions natively. The schema and
	// the OutputDimensionality request parameter must agree with
	// embedder_dimension; see the curriculum package.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultModel is the generation model for tutoring answers.
	DefaultModel = "gemini-2.5-flash"

	// DefaultEmbedderDimension matches the curriculum_chunks schema.
	DefaultEmbedderDimension = 3072
)

// Config stores application configuration. Secrets (API keys, the database
// password) are read from the environment only and never written back out.
type Config struct {
	// AI provider and models
	Provider          string `mapstructure:"provider"`           // "gemini" (default) or "openai"
	Model             string `mapstructure:"model"`              // generation model identifier
	EmbedderModel     string `mapstructure:"embedder_model"`     // embedding model identifier
	EmbedderDimension int    `mapstructure:"embedder_dimension"` // output vector width

	// HTTP server
	ServeAddr string `mapstructure:"serve_addr"`

	// PostgreSQL
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Observability (optional; tracing disabled when endpoint is empty)
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Environment  string `mapstructure:"environment"`

	// Logging
	LogJSON bool `mapstructure:"log_json"`
}

// Load reads configuration from file, environment and defaults, then
// validates it (fail-fast).
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(filepath.Join(home, ".lernia"))

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("no config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.applyDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedder_dimension", DefaultEmbedderDimension)

	v.SetDefault("serve_addr", "127.0.0.1:8080")

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "lernia")
	v.SetDefault("postgres_password", "lernia_dev_password")
	v.SetDefault("postgres_db_name", "lernia")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("environment", "dev")
	v.SetDefault("log_json", false)
}

// bindEnv binds explicit LERNIA_* overrides. Provider API keys
// (GEMINI_API_KEY, OPENAI_API_KEY) are read directly where the client is
// constructed; Validate only checks their presence.
func bindEnv(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: binding %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "LERNIA_PROVIDER")
	mustBind("model", "LERNIA_MODEL")
	mustBind("embedder_model", "LERNIA_EMBEDDER_MODEL")
	mustBind("serve_addr", "LERNIA_SERVE_ADDR")
	mustBind("otlp_endpoint", "LERNIA_OTLP_ENDPOINT")
	mustBind("log_json", "LERNIA_LOG_JSON")
}

// APIKey returns the provider API key from the environment.
func (c *Config) APIKey() string {
	switch c.Provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	default:
		return os.Getenv("GEMINI_API_KEY")
	}
}
