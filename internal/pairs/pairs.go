// Package pairs derives speaker-verification test pairs from the
// held-out test split: same-speaker pairs from one singer's segments and
// different-speaker pairs across singers, with seeded deterministic
// sampling.
package pairs

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Pair is one labeled verification pair. Paths are relative to the test
// split root. Label 1 is same-speaker, 0 is different-speaker.
type Pair struct {
	Label int
	A, B  string
}

// Options control pair generation
type Options struct {
	Seed          int64
	MaxPerSinger  int // cap on same-speaker pairs per singer; 0 = unlimited
}

// Generate walks the test split directory (test/<singer_id>/<track>/*.wav)
// and produces labeled pairs. Segment enumeration is sorted, so the
// output is a pure function of the tree contents and the seed. No pair is
// emitted twice; a segment may appear in many pairs.
func Generate(testDir string, opts Options) ([]Pair, error) {
	bySinger, all, err := collectSegments(testDir)
	if err != nil {
		return nil, err
	}

	singers := make([]string, 0, len(bySinger))
	for singer := range bySinger {
		singers = append(singers, singer)
	}
	sort.Strings(singers)

	rng := rand.New(rand.NewSource(opts.Seed))
	used := make(map[string]bool)
	var out []Pair

	for _, singer := range singers {
		files := bySinger[singer]
		if len(files) < 2 {
			continue
		}

		positives := combinations(files, opts.MaxPerSinger)

		others := make([]string, 0, len(all)-len(files))
		prefix := singer + "/"
		for _, f := range all {
			if !strings.HasPrefix(f, prefix) {
				others = append(others, f)
			}
		}
		rng.Shuffle(len(others), func(i, j int) {
			others[i], others[j] = others[j], others[i]
		})

		for i, p := range positives {
			key := pairKey(p[0], p[1])
			if used[key] {
				continue
			}
			used[key] = true
			out = append(out, Pair{Label: 1, A: p[0], B: p[1]})

			if len(others) == 0 {
				continue
			}
			// One negative per positive, scanning forward from a rotating
			// start so negatives spread over the other singers
			negative := ""
			for j := 0; j < len(others); j++ {
				candidate := others[(i+j)%len(others)]
				k := pairKey(p[0], candidate)
				if !used[k] {
					negative = candidate
					used[k] = true
					break
				}
			}
			if negative != "" {
				out = append(out, Pair{Label: 0, A: p[0], B: negative})
			}
		}
	}

	return out, nil
}

// collectSegments returns segment paths grouped by singer plus the flat
// sorted list, all relative to testDir
func collectSegments(testDir string) (map[string][]string, []string, error) {
	bySinger := make(map[string][]string)
	var all []string

	err := filepath.Walk(testDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".wav") {
			return nil
		}
		rel, err := filepath.Rel(testDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		parts := strings.SplitN(rel, "/", 2)
		if len(parts) < 2 {
			return nil
		}
		bySinger[parts[0]] = append(bySinger[parts[0]], rel)
		all = append(all, rel)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk test split: %w", err)
	}

	for singer := range bySinger {
		sort.Strings(bySinger[singer])
	}
	sort.Strings(all)
	return bySinger, all, nil
}

// combinations enumerates 2-element combinations in lexicographic order,
// stopping at max when max > 0
func combinations(files []string, max int) [][2]string {
	var out [][2]string
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			out = append(out, [2]string{files[i], files[j]})
			if max > 0 && len(out) >= max {
				return out
			}
		}
	}
	return out
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

// Write persists pairs as line-oriented text: "<label> <path1> <path2>"
func Write(path string, pairs []Pair) error {
	var sb strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&sb, "%d %s %s\n", p.Label, p.A, p.B)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write test pairs: %w", err)
	}
	return os.Rename(tmp, path)
}
