package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Transform the staging file, then load the snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, err := runTransform(cmd)
		if err != nil {
			return err
		}
		zap.L().Info("run: transform done",
			zap.Int("read", res.Read),
			zap.Int("listings", len(res.Snapshot)),
		)
		return runLoad(cmd.Context(), res.Snapshot, os.Stdout)
	},
}

func init() {
	runCmd.Flags().String("input", "", "staging file (CSV or XLSX); overrides data.staging_file")
	rootCmd.AddCommand(runCmd)
}
