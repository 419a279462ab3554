package main

import (
	"github.com/spf13/cobra"
)

var regroupCmd = &cobra.Command{
	Use:   "regroup",
	Short: "Step 4: group track directories under their singer IDs",
	Long: `Regroup moves audio/<track> to audio/<singer_id>/<track> for every
manifest row. A row whose directory is missing on disk is logged and
skipped; --strict-assets aborts instead. Already-grouped directories
are skipped, so an interrupted regroup can simply be re-run.`,
	RunE: stepRunner(4),
}

func init() {
	rootCmd.AddCommand(regroupCmd)
}
