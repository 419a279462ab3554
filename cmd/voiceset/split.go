package main

import (
	"github.com/spf13/cobra"
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Step 6: partition singers into train/validation/test",
	Long: `Split partitions the singer IDs 80:10:10 by singer count using a
seeded shuffle (default seed 42), writes the assignment to
subset_split.csv, and moves each audio/<singer_id> directory under its
partition. With --reference, singers present in the reference dataset's
subset_split.csv inherit its assignment unconditionally; only the rest
are shuffled.`,
	RunE: stepRunner(6),
}

func init() {
	rootCmd.AddCommand(splitCmd)
}
