package main

import (
	"github.com/spf13/cobra"
)

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Step 7: generate speaker-verification test pairs",
	Long: `Pairs enumerates same-speaker segment pairs within each test-split
singer (capped by --max-pairs-per-singer) and samples one
different-speaker pair per positive with a seeded PRNG. The result is
written to test_pairs.txt as "<label> <path1> <path2>" lines, label 1
meaning same speaker.`,
	RunE: stepRunner(7),
}

func init() {
	rootCmd.AddCommand(pairsCmd)
}
