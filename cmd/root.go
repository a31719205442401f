// Package cmd implements the lernia command-line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lernia/lernia/internal/config"
	"github.com/lernia/lernia/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "lernia",
	Short: "Lernia - curriculum-grounded tutoring pipeline",
	Long: `Lernia answers student questions from ingested curriculum material.

It retrieves the most relevant curriculum chunks for a question, assembles
a tutoring prompt around them, and streams a model-generated answer.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// bootstrap loads configuration and builds the logger every subcommand
// shares. slog's default is replaced so libraries logging through slog
// line up with our handler.
func bootstrap() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
