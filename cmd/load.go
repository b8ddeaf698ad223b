package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/listing-etl/internal/model"
	"github.com/sells-group/listing-etl/internal/pipeline"
	"github.com/sells-group/listing-etl/internal/resilience"
	"github.com/sells-group/listing-etl/internal/snapshot"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the snapshot into the warehouse",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cols, err := columns()
		if err != nil {
			return eris.Wrap(err, "load columns")
		}
		listings, _, err := snapshot.Read(cfg.Data.Path(cfg.Data.SnapshotFile), cols)
		if err != nil {
			return err
		}
		return runLoad(cmd.Context(), listings, os.Stdout)
	},
}

// runLoad loads listings into the warehouse and prints the run summary. The
// summary is printed even when the run fails.
func runLoad(ctx context.Context, listings []model.Listing, out io.Writer) error {
	st, err := openMigrated(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	summary, err := pipeline.Load(ctx, st, listings, pipeline.LoadOpts{
		Retry:       resilience.FromConfig(cfg.Load.MaxAttempts, cfg.Load.InitialBackoffMs, cfg.Load.MaxBackoffMs),
		RejectsPath: cfg.Data.Path(cfg.Data.RejectsFile),
	})
	if summary != nil {
		if perr := printSummary(out, summary); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

func printSummary(out io.Writer, s *model.RunSummary) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
