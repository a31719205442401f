package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lernia/lernia/internal/app"
)

var structureReindex bool

var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Show the stored curriculum per grade/subject/term scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStructure()
	},
}

func init() {
	structureCmd.Flags().BoolVar(&structureReindex, "reindex", false, "drop and rebuild the vector search index")
	rootCmd.AddCommand(structureCmd)
}

func runStructure() error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

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

	if structureReindex {
		if err := a.Store.EnsureIndex(ctx, true); err != nil {
			return fmt.Errorf("rebuilding index: %w", err)
		}
		fmt.Println("Vector index rebuilt.")
	}

	scopes, err := a.Store.Structure(ctx)
	if err != nil {
		return fmt.Errorf("listing corpus structure: %w", err)
	}
	if len(scopes) == 0 {
		fmt.Println("No curriculum ingested yet.")
		return nil
	}

	fmt.Printf("%-8s %-16s %-8s %8s %8s\n", "GRADE", "SUBJECT", "TERM", "CHUNKS", "PENDING")
	for _, s := range scopes {
		fmt.Printf("%-8s %-16s %-8s %8d %8d\n", s.Grade, s.Subject, s.Term, s.Total, s.Pending)
	}
	return nil
}
