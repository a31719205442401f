package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lernia/lernia/internal/app"
)

var (
	ingestGrade   string
	ingestSubject string
	ingestTerm    string
	ingestReplace bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json>",
	Short: "Load a curriculum document file into the store",
	Long: `Ingest parses a JSON file holding one curriculum document or an array
of documents and stores them under the given grade/subject/term scope.
Embeddings are not computed here; run "lernia backfill" afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(args[0])
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestGrade, "grade", "", "grade the documents belong to (required)")
	ingestCmd.Flags().StringVar(&ingestSubject, "subject", "", "subject the documents belong to (required)")
	ingestCmd.Flags().StringVar(&ingestTerm, "term", "", "term the documents belong to")
	ingestCmd.Flags().BoolVar(&ingestReplace, "replace", false, "delete existing documents in this scope first")
	_ = ingestCmd.MarkFlagRequired("grade")
	_ = ingestCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(path string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	payload, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
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

	inserted, err := a.Ingestor.Ingest(ctx, ingestGrade, ingestSubject, ingestTerm, payload, ingestReplace)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", path, err)
	}

	fmt.Printf("Inserted %d documents (%s / %s", inserted, ingestGrade, ingestSubject)
	if ingestTerm != "" {
		fmt.Printf(" / %s", ingestTerm)
	}
	fmt.Println(")")
	fmt.Println(`Run "lernia backfill" to embed them.`)
	return nil
}
