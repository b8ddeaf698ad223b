package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/listing-etl/internal/pipeline"
	"github.com/sells-group/listing-etl/internal/snapshot"
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Copy the snapshot into the staging table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cols, err := columns()
		if err != nil {
			return eris.Wrap(err, "load columns")
		}
		listings, _, err := snapshot.Read(cfg.Data.Path(cfg.Data.SnapshotFile), cols)
		if err != nil {
			return err
		}

		st, err := openMigrated(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		replace, _ := cmd.Flags().GetBool("replace")
		n, err := pipeline.Stage(ctx, st, listings, replace)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "stage: %d rows written\n", n)
		return nil
	},
}

func init() {
	stageCmd.Flags().Bool("replace", false, "replace the staging table contents instead of upserting")
	rootCmd.AddCommand(stageCmd)
}
