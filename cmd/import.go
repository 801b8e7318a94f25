package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/service"
)

var (
	importFile   string
	importUpdate bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import rulemakings from a JSON document",
	Long: `Import loads rulemakings into the database, keyed by docket id.

The document is either {"rulemakings": [...]} or a bare array. Each entry
carries agency, title, docket_id, comment_deadline and the optional
description, federal_register_url, status, context_documents,
legal_analysis and opposition_points fields. Without --file the built-in
sample rulemaking is imported.

Examples:
  # Seed the sample rulemaking
  ./publiccomment import

  # Import a file, skipping dockets that already exist
  ./publiccomment import --file rulemakings.json

  # Import a file, overwriting existing dockets
  ./publiccomment import --file rulemakings.json --update`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "JSON file to import (defaults to the built-in sample)")
	importCmd.Flags().BoolVarP(&importUpdate, "update", "u", false, "Overwrite rulemakings whose docket id already exists")
}

func runImport(cmd *cobra.Command, args []string) error {
	data := service.SampleData()
	source := "built-in sample"
	if importFile != "" {
		raw, err := os.ReadFile(importFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", importFile, err)
		}
		data, source = raw, importFile
	}

	inputs, err := service.ParseImport(data)
	if err != nil {
		return err
	}

	// Set up context with cancellation on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDB()
	if err != nil {
		return err
	}
	defer db.Close()

	st := newStores(db)
	rulemakings := service.NewRulemakingService(st.rulemakings, logger)
	importer := service.NewImporter(st.rulemakings, rulemakings, logger)

	logger.Info("starting import",
		zap.String("source", source),
		zap.Int("rulemakings", len(inputs)),
		zap.Bool("update", importUpdate))

	stats, err := importer.Import(ctx, inputs, importUpdate)
	service.PrintSummary(cmd.OutOrStdout(), stats)
	if err != nil {
		if ctx.Err() != nil {
			return errors.New("import cancelled")
		}
		return fmt.Errorf("import failed: %w", err)
	}

	if stats.Failed > 0 {
		return fmt.Errorf("%d rulemakings failed to import", stats.Failed)
	}
	return nil
}
