package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/lernia/lernia/internal/app"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Compute embeddings for chunks that do not have one yet",
	Long: `Backfill embeds every stored chunk whose embedding is still missing.
Runs are idempotent: chunks that fail stay pending and the next run
picks them up again. A file lock keeps concurrent runs on one host from
burning embedding quota on the same chunks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackfill()
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill() error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	lock := flock.New(filepath.Join(os.TempDir(), "lernia-backfill.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring backfill lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another backfill is already running on this host")
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logger.Warn("releasing backfill lock", "error", unlockErr)
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.Backfill.Run(ctx)
	if err != nil {
		return fmt.Errorf("running backfill: %w", err)
	}

	fmt.Printf("Backfill complete: %d embedded, %d still pending\n",
		result.Updated, result.Remaining)
	return nil
}
