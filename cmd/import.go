package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"catalog-manager/core/config"
	"catalog-manager/core/database"
	"catalog-manager/core/logger"
	catalogmodels "catalog-manager/feature/catalog/models"
	"catalog-manager/feature/catalog/reconcile"
	"catalog-manager/feature/history"
	historymodels "catalog-manager/feature/history/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importFile  string
	importActor string
)

// importCmd reconciles a JSON file of product rows into the catalog.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import product rows from a JSON file",
	Long: `Import reads a JSON array of product rows and reconciles each one
into the catalog. Rows are processed independently: a failing row is
reported and skipped without affecting the others.

Examples:
  # Import rows from a file
  catalog-manager import --file products.json

  # Attribute price changes to an operator
  catalog-manager import --file products.json --actor carla`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "Path to a JSON array of product rows (required)")
	importCmd.Flags().StringVar(&importActor, "actor", "", "Actor recorded against price changes (overrides per-row actor)")
	_ = importCmd.MarkFlagRequired("file")

	RootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	// Read and decode the import file
	data, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}
	var reqs []reconcile.SaveRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return fmt.Errorf("failed to decode import file: %w", err)
	}
	if importActor != "" {
		for i := range reqs {
			reqs[i].Actor = importActor
		}
	}

	l.Info("Starting catalog import",
		zap.String("file", importFile),
		zap.Int("rows", len(reqs)),
	)

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	entities := append(catalogmodels.All(), historymodels.All()...)
	if err := database.Migrate(db, entities...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	recorder := history.NewRecorder()
	runner := reconcile.NewRunner(db, l, recorder, recorder, nil)

	report := runner.SaveBulk(ctx, reqs)

	for _, res := range report.Results {
		if res.OK {
			continue
		}
		l.Warn("Row failed",
			zap.String("slug", res.Slug),
			zap.String("error", res.Error),
		)
	}

	l.Info("Import finished",
		zap.Int("total", report.Summary.Total),
		zap.Int("succeeded", report.Summary.Succeeded),
		zap.Int("failed", report.Summary.Failed),
	)

	if report.Summary.Failed > 0 {
		return fmt.Errorf("%d of %d rows failed", report.Summary.Failed, report.Summary.Total)
	}
	return nil
}
