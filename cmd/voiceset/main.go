package main

import (
	"fmt"
	"os"

	"github.com/franz/voiceset/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "voiceset",
		Short: "Build speaker-labeled voice datasets from remote audio manifests",
		Long: `voiceset is a deterministic, resumable batch pipeline. It takes a CSV
manifest of remote vocal recordings and produces a speaker-labeled,
train/validation/test-partitioned dataset of silence-free audio segments,
with audit logs for every destructive operation.`,
		Version: Version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/voiceset.yaml)")
	rootCmd.PersistentFlags().StringP("dataset-dir", "d", "", "dataset directory holding all artifacts")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Manifest column overrides
	rootCmd.PersistentFlags().String("uri-column", "uri", "manifest column holding the remote audio URI")
	rootCmd.PersistentFlags().String("artist-column", "artist_name", "manifest column holding the artist name")
	rootCmd.PersistentFlags().Bool("uri-is-dir", false, "URIs name a per-track directory (…/<track>/vocals.wav) instead of a flat file")

	// Object storage
	rootCmd.PersistentFlags().String("bucket", "", "object storage bucket")
	rootCmd.PersistentFlags().String("endpoint", "", "custom S3-compatible endpoint URL")
	rootCmd.PersistentFlags().String("region", "us-east-1", "object storage region")
	rootCmd.PersistentFlags().String("local-store", "", "use a local directory as the object store (tests/offline)")

	viper.BindPFlag("dataset_dir", rootCmd.PersistentFlags().Lookup("dataset-dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("uri_column", rootCmd.PersistentFlags().Lookup("uri-column"))
	viper.BindPFlag("artist_column", rootCmd.PersistentFlags().Lookup("artist-column"))
	viper.BindPFlag("uri_is_dir", rootCmd.PersistentFlags().Lookup("uri-is-dir"))
	viper.BindPFlag("bucket", rootCmd.PersistentFlags().Lookup("bucket"))
	viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("local_store", rootCmd.PersistentFlags().Lookup("local-store"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("voiceset")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VOICESET")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
