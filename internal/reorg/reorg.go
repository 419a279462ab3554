// Package reorg restructures the on-disk audio tree to match the
// identity encoded in the manifest: grouping track directories under
// singer IDs, renaming tracks to content-derived hashes, and moving
// singer directories into their split partitions. Every pass is a pure
// rename/move driven by the manifest; nothing is copied or re-encoded.
package reorg

import (
	"context"
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/franz/voiceset/internal/manifest"
	"github.com/franz/voiceset/internal/report"
	"github.com/franz/voiceset/internal/util"
)

// TrackHash returns the content-derived directory name for a track: the
// md5 hex digest of the original name. Pure function of the name string.
func TrackHash(name string) string {
	sum := md5.Sum([]byte(name))
	return hex.EncodeToString(sum[:])
}

// isHexDigest reports whether name looks like an md5 hex digest, i.e. a
// directory already renamed by a previous hash pass
func isHexDigest(name string) bool {
	if len(name) != 2*md5.Size {
		return false
	}
	for _, r := range name {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// GroupResult summarizes a group-by-singer pass
type GroupResult struct {
	Moved   int
	Missing int
	Skipped int
}

// GroupBySinger moves each track directory under its singer-ID parent:
// audio/<track> becomes audio/<singer_id>/<track>. Rows without a singer
// ID are skipped (they were filtered). A manifest row whose directory is
// absent on disk is logged and skipped unless strict is set, in which
// case the pass aborts with the offending row.
func GroupBySinger(ctx context.Context, m *manifest.Manifest, audioDir string,
	strict bool, logger *report.EventLogger) (*GroupResult, error) {

	if err := m.RequireColumns(manifest.ColLocalFileName, manifest.ColSingerID); err != nil {
		return nil, err
	}

	result := &GroupResult{}
	for i := 0; i < m.Len(); i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		track := m.Value(i, manifest.ColLocalFileName)
		singerID := m.Value(i, manifest.ColSingerID)
		if track == "" || singerID == "" {
			result.Skipped++
			continue
		}

		src := filepath.Join(audioDir, track)
		dest := filepath.Join(audioDir, singerID, track)

		if util.DirExists(dest) {
			// Already grouped, e.g. a resumed run
			result.Skipped++
			continue
		}
		if !util.DirExists(src) {
			if strict {
				return result, fmt.Errorf("%w: row %d: %s", util.ErrMissingAsset, i, src)
			}
			util.WarnLog("Missing asset for row %d: %s", i, src)
			logger.LogSkip(report.EventRegroup, track, "missing on disk")
			result.Missing++
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return result, fmt.Errorf("failed to create singer directory: %w", err)
		}
		if err := os.Rename(src, dest); err != nil {
			return result, fmt.Errorf("failed to move %s: %w", src, err)
		}
		logger.LogMove(report.EventRegroup, track, singerID, src, dest)
		result.Moved++
	}

	return result, nil
}

// HashResult summarizes a hash-rename pass
type HashResult struct {
	Renamed int
	Skipped int
}

// HashNames renames every second-level track directory to the md5 digest
// of its name and writes the name-to-hash mapping CSV. The whole rename
// set is validated for digest collisions before the first rename; two
// distinct names hashing equal abort the pass.
func HashNames(ctx context.Context, audioDir, mappingPath string,
	logger *report.EventLogger) (*HashResult, error) {

	singers, err := sortedSubdirs(audioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", audioDir, err)
	}

	type rename struct {
		singer, track, hash string
	}
	var renames []rename

	// Collision check is per singer directory: that is the namespace a
	// rename can silently merge within.
	for _, singer := range singers {
		tracks, err := sortedSubdirs(filepath.Join(audioDir, singer))
		if err != nil {
			return nil, fmt.Errorf("failed to list singer %s: %w", singer, err)
		}

		seen := make(map[string]string, len(tracks))
		for _, track := range tracks {
			if isHexDigest(track) {
				// Already hashed (resumed run)
				seen[track] = track
				continue
			}
			h := TrackHash(track)
			if prev, ok := seen[h]; ok && prev != track {
				return nil, fmt.Errorf("%w: %q and %q both hash to %s",
					util.ErrHashCollision, prev, track, h)
			}
			seen[h] = track
			renames = append(renames, rename{singer: singer, track: track, hash: h})
		}
	}

	result := &HashResult{}
	mappings := make([][2]string, 0, len(renames))

	for _, r := range renames {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		src := filepath.Join(audioDir, r.singer, r.track)
		dest := filepath.Join(audioDir, r.singer, r.hash)
		if util.DirExists(dest) {
			return result, fmt.Errorf("%w: destination %s already exists for %q",
				util.ErrHashCollision, dest, r.track)
		}
		if err := os.Rename(src, dest); err != nil {
			return result, fmt.Errorf("failed to rename %s: %w", src, err)
		}
		logger.LogMove(report.EventHash, r.track, r.singer, src, dest)
		mappings = append(mappings, [2]string{r.track, r.hash})
		result.Renamed++
	}

	if err := writeHashMapping(mappingPath, mappings); err != nil {
		return result, err
	}

	return result, nil
}

func writeHashMapping(path string, mappings [][2]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create hash mapping: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"original", "hashed"}); err != nil {
		return fmt.Errorf("failed to write hash mapping header: %w", err)
	}
	for _, m := range mappings {
		if err := w.Write([]string{m[0], m[1]}); err != nil {
			return fmt.Errorf("failed to write hash mapping row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// SplitResult summarizes a move-to-splits pass
type SplitResult struct {
	Moved   map[string]int
	Missing int
}

// MoveToSplits moves each singer directory under its split partition:
// audio/<singer_id> becomes audio/<split>/<singer_id>. Singer directories
// with no assignment are left in place and counted as missing.
func MoveToSplits(ctx context.Context, audioDir string, assignment map[string]string,
	logger *report.EventLogger) (*SplitResult, error) {

	splitNames := make(map[string]bool)
	for _, split := range assignment {
		splitNames[split] = true
	}
	for split := range splitNames {
		if err := os.MkdirAll(filepath.Join(audioDir, split), 0755); err != nil {
			return nil, fmt.Errorf("failed to create split directory: %w", err)
		}
	}

	singers, err := sortedSubdirs(audioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", audioDir, err)
	}

	result := &SplitResult{Moved: make(map[string]int)}
	for _, singer := range singers {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if splitNames[singer] {
			continue // split directory itself
		}

		split, ok := assignment[singer]
		if !ok {
			util.WarnLog("Singer directory %s has no split assignment, leaving in place", singer)
			result.Missing++
			continue
		}

		src := filepath.Join(audioDir, singer)
		dest := filepath.Join(audioDir, split, singer)
		if err := os.Rename(src, dest); err != nil {
			return result, fmt.Errorf("failed to move %s to %s split: %w", singer, split, err)
		}
		logger.LogMove(report.EventSplit, "", singer, src, dest)
		result.Moved[split]++
	}

	return result, nil
}

func sortedSubdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
