package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/franz/voiceset/internal/audio"
	"github.com/franz/voiceset/internal/filter"
	"github.com/franz/voiceset/internal/identity"
	"github.com/franz/voiceset/internal/ingest"
	"github.com/franz/voiceset/internal/manifest"
	"github.com/franz/voiceset/internal/pairs"
	"github.com/franz/voiceset/internal/pipeline"
	"github.com/franz/voiceset/internal/reorg"
	"github.com/franz/voiceset/internal/split"
	"github.com/franz/voiceset/internal/state"
	"github.com/franz/voiceset/internal/util"
)

// steps returns the full pipeline in order, bound to this env.
// Prerequisite artifacts double as resume checkpoints.
func (e *env) steps() []pipeline.Step {
	return []pipeline.Step{
		{
			N: 1, Name: "ingest",
			Outputs: []string{originalInputCSV, stateDB, audioDirName},
			Run:     e.runIngest,
		},
		{
			N: 2, Name: "dedupe",
			Prereqs: []string{originalInputCSV, audioDirName},
			Outputs: []string{dataCSV},
			Run:     e.runDedupe,
		},
		{
			N: 3, Name: "assign",
			Prereqs: []string{dataCSV, audioDirName},
			Outputs: []string{singerMappingJSON},
			Run:     e.runAssign,
		},
		{
			N: 4, Name: "regroup",
			Prereqs: []string{dataCSV, singerMappingJSON, audioDirName},
			Outputs: []string{pipeline.LayoutFile},
			Run:     e.runRegroup,
		},
		{
			N: 5, Name: "hashnames",
			Prereqs: []string{dataCSV, audioDirName, pipeline.LayoutFile},
			Outputs: []string{hashMappingCSV},
			Run:     e.runHashnames,
		},
		{
			N: 6, Name: "split",
			Prereqs: []string{dataCSV, audioDirName},
			Outputs: []string{subsetSplitCSV},
			Run:     e.runSplit,
		},
		{
			N: 7, Name: "pairs",
			Prereqs: []string{subsetSplitCSV, filepath.Join(audioDirName, split.Test)},
			Outputs: []string{testPairsTXT},
			Run:     e.runPairs,
		},
	}
}

// runIngest copies the source manifest into the dataset dir and
// downloads + silence-splits every track it names.
func (e *env) runIngest(ctx context.Context) error {
	manifestCopy := e.path(originalInputCSV)
	if input := viper.GetString("input"); input != "" {
		if err := copyFile(input, manifestCopy); err != nil {
			return fmt.Errorf("failed to copy source manifest: %w", err)
		}
		util.InfoLog("Copied source manifest to %s", manifestCopy)
	} else if !util.FileExists(manifestCopy) {
		return fmt.Errorf("source manifest is required (use --input, or place %s in the dataset dir)", originalInputCSV)
	}

	m, err := manifest.Load(manifestCopy)
	if err != nil {
		return err
	}

	store, err := buildStore(ctx)
	if err != nil {
		return err
	}

	opts := audio.SplitOptions{
		MinSilence:  viper.GetInt("min_silence"),
		Threshold:   viper.GetInt("silence_threshold"),
		KeepSilence: viper.GetInt("keep_silence"),
		MinSegment:  viper.GetInt("min_segment"),
	}
	splitter, err := audio.NewFFmpegSplitter(opts)
	if err != nil {
		return err
	}

	journal, err := state.Open(e.path(stateDB))
	if err != nil {
		return err
	}
	defer journal.Close()

	ing := ingest.New(ingest.Config{
		Store:       store,
		Splitter:    splitter,
		Journal:     journal,
		Logger:      e.logger,
		Columns:     e.cols,
		Concurrency: viper.GetInt("concurrency"),
		URIIsDir:    viper.GetBool("uri_is_dir"),
	})
	_, err = ing.Run(ctx, m, e.datasetDir)
	return err
}

// runDedupe reconciles the manifest against the ingested audio tree
func (e *env) runDedupe(_ context.Context) error {
	m, err := manifest.Load(e.path(originalInputCSV))
	if err != nil {
		return err
	}

	if _, err := ingest.Dedupe(m, e.cols, e.audioDir(), viper.GetBool("uri_is_dir"), e.logger); err != nil {
		return err
	}
	if err := m.Save(e.path(dataCSV)); err != nil {
		return err
	}
	util.SuccessLog("Wrote %s with %d rows", dataCSV, m.Len())
	return nil
}

// runAssign drops excluded artists and assigns canonical singer IDs
func (e *env) runAssign(ctx context.Context) error {
	m, err := manifest.Load(e.path(dataCSV))
	if err != nil {
		return err
	}
	if err := m.RequireColumns(e.cols.Artist, manifest.ColLocalFileName); err != nil {
		return err
	}

	mapping, mode, err := e.loadMapping()
	if err != nil {
		return err
	}

	mappingPath := e.path(singerMappingJSON)
	persist := func() error {
		if err := m.Save(e.path(dataCSV)); err != nil {
			return err
		}
		return mapping.Save(mappingPath)
	}

	removals := filter.Plan(m, e.cols, filter.DefaultRules())
	result, err := filter.Apply(ctx, m, mapping, removals, e.audioDir(), e.logger, persist)
	if err != nil {
		return err
	}
	util.InfoLog("Filter: %d rows removed, %d directories deleted", result.RowsRemoved, result.DirsDeleted)

	names := make([]string, m.Len())
	for i := 0; i < m.Len(); i++ {
		names[i] = m.Value(i, e.cols.Artist)
	}

	// Snapshot resolution state so fresh allocations can be audited
	known := make([]bool, len(names))
	for i, name := range names {
		_, known[i] = mapping.Resolve(name)
	}

	assigner := &identity.Assigner{Mapping: mapping, Mode: mode}
	ids, err := assigner.Assign(names)
	if err != nil {
		return err
	}

	m.AddColumn(manifest.ColSingerID)
	for i, id := range ids {
		if err := m.Set(i, manifest.ColSingerID, id); err != nil {
			return err
		}
		e.logger.LogAssign(names[i], id, !known[i])
	}

	if err := persist(); err != nil {
		return err
	}
	util.SuccessLog("Assigned %d singer IDs across %d rows", mapping.Len(), m.Len())
	return nil
}

// loadMapping resolves the identity mapping source and assignment mode
// from configuration: an explicit mapping file, a reference dataset's
// mapping, or a fresh mapping.
func (e *env) loadMapping() (*identity.Mapping, identity.Mode, error) {
	mappingPath := viper.GetString("mapping")
	if ref := viper.GetString("reference"); ref != "" && mappingPath == "" {
		mappingPath = filepath.Join(ref, singerMappingJSON)
	}
	if mappingPath == "" {
		return identity.NewMapping(), identity.ModeFresh, nil
	}

	mapping, err := identity.Load(mappingPath)
	if err != nil {
		return nil, 0, err
	}
	mode := identity.ModePermissive
	if viper.GetBool("strict_ids") {
		mode = identity.ModeStrict
	}
	util.InfoLog("Seeded %d singer IDs from %s", mapping.Len(), mappingPath)
	return mapping, mode, nil
}

// runRegroup moves track directories under their singer IDs
func (e *env) runRegroup(ctx context.Context) error {
	m, err := manifest.Load(e.path(dataCSV))
	if err != nil {
		return err
	}

	result, err := reorg.GroupBySinger(ctx, m, e.audioDir(), viper.GetBool("strict_assets"), e.logger)
	if err != nil {
		return err
	}
	if err := pipeline.WriteLayout(e.datasetDir, pipeline.StageSinger); err != nil {
		return err
	}
	util.SuccessLog("Regrouped %d tracks (%d missing, %d skipped)",
		result.Moved, result.Missing, result.Skipped)
	return nil
}

// runHashnames renames track directories to md5 digests of their names
func (e *env) runHashnames(ctx context.Context) error {
	layout, err := pipeline.ReadLayout(e.datasetDir)
	if err != nil {
		return err
	}
	if layout.Stage != pipeline.StageSinger && layout.Stage != pipeline.StageHashed {
		return fmt.Errorf("%w: audio tree is at stage %q, run regroup first",
			util.ErrPrerequisite, layout.Stage)
	}

	result, err := reorg.HashNames(ctx, e.audioDir(), e.path(hashMappingCSV), e.logger)
	if err != nil {
		return err
	}

	// Record the digest alongside each row for traceability
	m, err := manifest.Load(e.path(dataCSV))
	if err != nil {
		return err
	}
	m.AddColumn(manifest.ColTrackHash)
	for i := 0; i < m.Len(); i++ {
		track := m.Value(i, manifest.ColLocalFileName)
		if track == "" {
			continue
		}
		if err := m.Set(i, manifest.ColTrackHash, reorg.TrackHash(track)); err != nil {
			return err
		}
	}
	if err := m.Save(e.path(dataCSV)); err != nil {
		return err
	}

	if err := pipeline.WriteLayout(e.datasetDir, pipeline.StageHashed); err != nil {
		return err
	}
	util.SuccessLog("Hashed %d track names, mapping in %s", result.Renamed, hashMappingCSV)
	return nil
}

// runSplit partitions singers into train/validation/test
func (e *env) runSplit(ctx context.Context) error {
	m, err := manifest.Load(e.path(dataCSV))
	if err != nil {
		return err
	}
	if err := m.RequireColumns(manifest.ColSingerID); err != nil {
		return err
	}

	seen := make(map[string]bool)
	var ids []string
	for i := 0; i < m.Len(); i++ {
		id := m.Value(i, manifest.ColSingerID)
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	ref := split.Assignment{}
	if refDir := viper.GetString("reference"); refDir != "" {
		ref, err = split.LoadReference(filepath.Join(refDir, subsetSplitCSV))
		if err != nil {
			return err
		}
		util.InfoLog("Pinning splits from reference (%d singers)", len(ref))
	}

	seed := viper.GetInt64("seed")
	assignment := split.Assign(ids, ref, seed)
	for _, id := range ids {
		_, pinned := ref[id]
		e.logger.LogSplit(id, assignment[id], pinned)
	}

	if err := split.Annotate(m, assignment); err != nil {
		return err
	}
	if err := m.Save(e.path(subsetSplitCSV)); err != nil {
		return err
	}

	result, err := reorg.MoveToSplits(ctx, e.audioDir(), assignment, e.logger)
	if err != nil {
		return err
	}
	if err := pipeline.WriteLayout(e.datasetDir, pipeline.StageSplit); err != nil {
		return err
	}

	counts := split.Counts(assignment)
	util.SuccessLog("Split %d singers: %d train, %d validation, %d test (moved %v)",
		len(ids), counts[split.Train], counts[split.Validation], counts[split.Test], result.Moved)
	return nil
}

// runPairs generates speaker-verification pairs from the test split
func (e *env) runPairs(_ context.Context) error {
	testDir := filepath.Join(e.audioDir(), split.Test)
	opts := pairs.Options{
		Seed:         viper.GetInt64("seed"),
		MaxPerSinger: viper.GetInt("max_pairs_per_singer"),
	}

	generated, err := pairs.Generate(testDir, opts)
	if err != nil {
		return err
	}
	if err := pairs.Write(e.path(testPairsTXT), generated); err != nil {
		return err
	}

	positives := 0
	for _, p := range generated {
		if p.Label == 1 {
			positives++
		}
	}
	util.SuccessLog("Wrote %d pairs (%d same-speaker) to %s",
		len(generated), positives, testPairsTXT)
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
