package main

import (
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Step 1: download remote audio and split it on silence",
	Long: `Ingest copies the source manifest into the dataset directory as
original_input.csv, then downloads every track it names from object
storage and splits it into silence-free segments under
audio/<track>/NNNNN.wav.

Progress is journaled in state.db: an interrupted ingest resumes without
re-downloading finished tracks, and per-track failures are recorded and
skipped rather than aborting the batch. Requires ffmpeg and ffprobe on
PATH.`,
	RunE: stepRunner(1),
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

// stepRunner returns a RunE executing exactly one pipeline step,
// including its prerequisite checks
func stepRunner(n int) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(true)
		if err != nil {
			return err
		}
		defer e.close()

		driver, err := newDriver(e)
		if err != nil {
			return err
		}
		return driver.Run(cmd.Context(), n, n)
	}
}
