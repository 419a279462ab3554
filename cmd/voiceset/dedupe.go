package main

import (
	"github.com/spf13/cobra"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Step 2: reconcile the manifest against the ingested audio tree",
	Long: `Dedupe matches the directories under audio/ against the rows of
original_input.csv by the track name derived from the URI column. Rows
whose track never produced a local directory (failed downloads, empty
splits) are dropped, and the surviving rows gain a local_file_name
column. The result is written to data.csv, the authoritative manifest
for all later steps.`,
	RunE: stepRunner(2),
}

func init() {
	rootCmd.AddCommand(dedupeCmd)
}
