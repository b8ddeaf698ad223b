package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-etl/internal/config"
	"github.com/sells-group/listing-etl/internal/model"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "listing-etl",
	Short: "Vehicle listing ETL",
	Long: "Normalizes scraped bonbanh listings into a deduplicated snapshot and loads it\n" +
		"into a star-schema warehouse (SCD type 1 dimensions, append-only facts).",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// columns returns the configured column labels.
func columns() (model.Columns, error) {
	return model.LoadColumns(cfg.Data.Path(cfg.Data.ColumnsFile))
}
