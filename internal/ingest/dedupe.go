package ingest

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/franz/voiceset/internal/manifest"
	"github.com/franz/voiceset/internal/report"
	"github.com/franz/voiceset/internal/util"
)

// DedupeResult summarizes a manifest reconciliation pass
type DedupeResult struct {
	Matched       int
	DroppedRows   int
	UnmatchedDirs int
}

// Dedupe reconciles the manifest against what actually landed in
// audioDir: rows whose track never produced a local directory are
// dropped, and the surviving rows gain a local_file_name column naming
// their directory. Rows sharing a track name collapse to the last one,
// the row whose download landed last during ingest.
func Dedupe(m *manifest.Manifest, cols manifest.Columns, audioDir string, uriIsDir bool, logger *report.EventLogger) (*DedupeResult, error) {
	if err := m.RequireColumns(cols.URI); err != nil {
		return nil, err
	}

	// Track name -> manifest row. Later rows win on collision, matching
	// the row that would have overwritten the directory during ingest.
	byTrack := make(map[string]int, m.Len())
	for i := 0; i < m.Len(); i++ {
		uri := m.Value(i, cols.URI)
		if uri == "" {
			continue
		}
		track := TrackNameFromURI(uri, uriIsDir)
		if !strings.HasSuffix(track, ".wav") {
			byTrack[track] = i
		}
	}

	entries, err := os.ReadDir(audioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio directory: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)

	result := &DedupeResult{}
	rowToDir := make(map[int]string, len(dirs))
	for _, dir := range dirs {
		row, ok := byTrack[dir]
		if !ok {
			result.UnmatchedDirs++
			logger.LogSkip(report.EventDedupe, dir, "no manifest row matches directory")
			continue
		}
		rowToDir[row] = dir
	}
	result.Matched = len(rowToDir)

	m.AddColumn(manifest.ColLocalFileName)
	for row, dir := range rowToDir {
		if err := m.Set(row, manifest.ColLocalFileName, dir); err != nil {
			return nil, err
		}
	}

	dropped := m.Filter(func(i int, row manifest.Row) bool {
		return m.Value(i, manifest.ColLocalFileName) != ""
	})
	result.DroppedRows = len(dropped)

	util.InfoLog("Dedupe: %d rows matched, %d rows dropped, %d local directories without a row",
		result.Matched, result.DroppedRows, result.UnmatchedDirs)
	return result, nil
}
