package main

import (
	"fmt"

	"github.com/franz/voiceset/internal/storage"
	"github.com/franz/voiceset/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten",
	Short: "Flatten a song-level object layout into per-track files",
	Long: `Flatten reshapes a remote prefix where each track's audio lives at
<prefix>/<track>/<stem>.wav into a flat <prefix>_FLATTENED/<track>.wav
layout, entirely within object storage. The source prefix is left
untouched; already-flat prefixes are a no-op. Run this before ingest
when the upstream export nests one directory per track.`,
	RunE: runFlatten,
}

func init() {
	rootCmd.AddCommand(flattenCmd)

	flattenCmd.Flags().String("prefix", "", "object prefix to flatten")
	viper.BindPFlag("prefix", flattenCmd.Flags().Lookup("prefix"))
}

func runFlatten(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	prefix := viper.GetString("prefix")
	if prefix == "" {
		return fmt.Errorf("object prefix is required (use --prefix)")
	}

	store, err := buildStore(cmd.Context())
	if err != nil {
		return err
	}

	result, err := storage.Flatten(cmd.Context(), store, prefix)
	if err != nil {
		return err
	}

	util.SuccessLog("Flatten complete: %d copied, %d flattened, %d skipped, %d errors",
		result.Copied, result.Flattened, result.Skipped, result.Errors)
	if result.Errors > 0 {
		return fmt.Errorf("%d objects failed to flatten", result.Errors)
	}
	return nil
}
