package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/viper"

	"github.com/franz/voiceset/internal/manifest"
	"github.com/franz/voiceset/internal/report"
	"github.com/franz/voiceset/internal/storage"
	"github.com/franz/voiceset/internal/util"
)

// Dataset artifact names. Every step reads and writes these relative to
// the dataset directory.
const (
	originalInputCSV  = "original_input.csv"
	dataCSV           = "data.csv"
	singerMappingJSON = "singer_id_mapping.json"
	hashMappingCSV    = "trackname_hash_mapping.csv"
	subsetSplitCSV    = "subset_split.csv"
	testPairsTXT      = "test_pairs.txt"
	stateDB           = "state.db"
	audioDirName      = "audio"
	artifactsDirName  = "artifacts"
)

// env carries the per-invocation context shared by every subcommand
type env struct {
	datasetDir string
	cols       manifest.Columns
	logger     *report.EventLogger
}

// newEnv builds the shared command context from viper configuration.
// withLogger controls whether a JSONL event log is opened (read-only
// commands like status skip it).
func newEnv(withLogger bool) (*env, error) {
	datasetDir := viper.GetString("dataset_dir")
	if datasetDir == "" {
		return nil, fmt.Errorf("dataset directory is required (use --dataset-dir/-d or set in config)")
	}

	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	cols := manifest.DefaultColumns()
	if c := viper.GetString("uri_column"); c != "" {
		cols.URI = c
	}
	if c := viper.GetString("artist_column"); c != "" {
		cols.Artist = c
	}

	e := &env{datasetDir: datasetDir, cols: cols}
	if withLogger {
		logLevel := report.LevelInfo
		if viper.GetBool("quiet") {
			logLevel = report.LevelWarning
		} else if viper.GetBool("verbose") {
			logLevel = report.LevelDebug
		}

		logger, err := report.NewEventLogger(filepath.Join(datasetDir, artifactsDirName), logLevel)
		if err != nil {
			util.WarnLog("Failed to create event logger: %v", err)
			logger = report.NullLogger()
		}
		e.logger = logger
		if logger.Path() != "" {
			util.InfoLog("Event log: %s", logger.Path())
		}
	}
	return e, nil
}

func (e *env) close() {
	e.logger.Close()
}

func (e *env) path(artifact string) string {
	return filepath.Join(e.datasetDir, artifact)
}

func (e *env) audioDir() string {
	return filepath.Join(e.datasetDir, audioDirName)
}

// buildStore constructs the object store from configuration: a local
// directory when --local-store is set, an S3-compatible bucket otherwise.
func buildStore(ctx context.Context) (storage.ObjectStore, error) {
	if dir := viper.GetString("local_store"); dir != "" {
		return storage.NewLocal(dir)
	}

	bucket := viper.GetString("bucket")
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required (use --bucket, or --local-store for a local mirror)")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(viper.GetString("region")))
	if err != nil {
		return nil, fmt.Errorf("failed to load storage credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := viper.GetString("endpoint"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return storage.NewS3(client, bucket), nil
}
