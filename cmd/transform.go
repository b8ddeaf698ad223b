package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/listing-etl/internal/pipeline"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Normalize the staging file and merge it into the snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, err := runTransform(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "transform: read %d rows, dropped %d, snapshot now %d listings (was %d)\n",
			res.Read, res.Dropped, len(res.Snapshot), res.Prior)
		return nil
	},
}

// runTransform applies flag overrides and runs the transform stage.
func runTransform(cmd *cobra.Command) (*pipeline.TransformResult, error) {
	if input, _ := cmd.Flags().GetString("input"); input != "" {
		cfg.Data.StagingFile = input
	}
	if err := cfg.Validate("transform"); err != nil {
		return nil, err
	}

	cols, err := columns()
	if err != nil {
		return nil, eris.Wrap(err, "load columns")
	}

	return pipeline.Transform(cmd.Context(), pipeline.TransformOpts{
		StagingPath:  cfg.Data.Path(cfg.Data.StagingFile),
		SnapshotPath: cfg.Data.Path(cfg.Data.SnapshotFile),
		Columns:      cols,
	})
}

func init() {
	transformCmd.Flags().String("input", "", "staging file (CSV or XLSX); overrides data.staging_file")
	rootCmd.AddCommand(transformCmd)
}
