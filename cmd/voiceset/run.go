package main

import (
	"github.com/franz/voiceset/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline steps 1-7 in order",
	Long: `Run executes the dataset pipeline end to end:

  1. ingest     download remote audio and split on silence
  2. dedupe     reconcile the manifest against the ingested tree
  3. assign     drop excluded artists, assign singer IDs
  4. regroup    group track directories under singer IDs
  5. hashnames  rename track directories to name digests
  6. split      partition singers into train/validation/test
  7. pairs      generate speaker-verification test pairs

Use --step and --stop-step to run a sub-range; each step checks that the
artifacts of the earlier steps exist before it starts.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("step", 1, "first step to run (1-7)")
	runCmd.Flags().Int("stop-step", 0, "last step to run (0 = through step 7)")
	viper.BindPFlag("step", runCmd.Flags().Lookup("step"))
	viper.BindPFlag("stop_step", runCmd.Flags().Lookup("stop-step"))

	// Pipeline knobs shared by the step subcommands and the driver
	rootCmd.PersistentFlags().String("input", "", "source manifest CSV (copied into the dataset dir)")
	rootCmd.PersistentFlags().IntP("concurrency", "c", 4, "ingest worker count")
	rootCmd.PersistentFlags().Int64("seed", 42, "PRNG seed for split and pair sampling")
	rootCmd.PersistentFlags().String("mapping", "", "pre-existing singer_id_mapping.json to resolve against")
	rootCmd.PersistentFlags().String("reference", "", "reference dataset dir to pin IDs and splits from")
	rootCmd.PersistentFlags().Bool("strict-ids", false, "fail when an artist is absent from the supplied mapping")
	rootCmd.PersistentFlags().Bool("strict-assets", false, "fail when a manifest row has no audio directory")
	rootCmd.PersistentFlags().Int("max-pairs-per-singer", 0, "cap on same-speaker pairs per singer (0 = unlimited)")
	rootCmd.PersistentFlags().Int("min-silence", 2000, "minimum silence run to split on (ms)")
	rootCmd.PersistentFlags().Int("silence-threshold", -40, "silence threshold (dB)")
	rootCmd.PersistentFlags().Int("keep-silence", 100, "silence kept at segment edges (ms)")
	rootCmd.PersistentFlags().Int("min-segment", 3000, "minimum segment length to keep (ms)")

	viper.BindPFlag("input", rootCmd.PersistentFlags().Lookup("input"))
	viper.BindPFlag("concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
	viper.BindPFlag("seed", rootCmd.PersistentFlags().Lookup("seed"))
	viper.BindPFlag("mapping", rootCmd.PersistentFlags().Lookup("mapping"))
	viper.BindPFlag("reference", rootCmd.PersistentFlags().Lookup("reference"))
	viper.BindPFlag("strict_ids", rootCmd.PersistentFlags().Lookup("strict-ids"))
	viper.BindPFlag("strict_assets", rootCmd.PersistentFlags().Lookup("strict-assets"))
	viper.BindPFlag("max_pairs_per_singer", rootCmd.PersistentFlags().Lookup("max-pairs-per-singer"))
	viper.BindPFlag("min_silence", rootCmd.PersistentFlags().Lookup("min-silence"))
	viper.BindPFlag("silence_threshold", rootCmd.PersistentFlags().Lookup("silence-threshold"))
	viper.BindPFlag("keep_silence", rootCmd.PersistentFlags().Lookup("keep-silence"))
	viper.BindPFlag("min_segment", rootCmd.PersistentFlags().Lookup("min-segment"))
}

func runPipeline(cmd *cobra.Command, args []string) error {
	e, err := newEnv(true)
	if err != nil {
		return err
	}
	defer e.close()

	driver, err := newDriver(e)
	if err != nil {
		return err
	}
	return driver.Run(cmd.Context(), viper.GetInt("step"), viper.GetInt("stop_step"))
}

func newDriver(e *env) (*pipeline.Driver, error) {
	return pipeline.NewDriver(e.datasetDir, e.steps())
}
