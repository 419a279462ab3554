// Package split partitions singer IDs into train/validation/test with a
// seeded deterministic shuffle, optionally pinned to a reference
// dataset's assignments.
package split

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/franz/voiceset/internal/manifest"
)

// Split labels. The manifest split column stores these strings.
const (
	Train      = "train"
	Validation = "validation"
	Test       = "test"
)

// DefaultSeed seeds the shuffle when the CLI supplies none
const DefaultSeed int64 = 42

// Assignment maps singer IDs to split labels
type Assignment map[string]string

// Ratios are fixed at 80:10:10 by singer count. Train and validation
// sizes are floored; the remainder goes to test, so the three sizes are
// exactly reproducible for a given singer count.
func partitionSizes(n int) (train, validation, test int) {
	train = n * 80 / 100
	validation = n * 10 / 100
	test = n - train - validation
	return
}

// Assign partitions ids into splits. IDs present in ref inherit the
// reference's split unconditionally; only the remaining IDs are shuffled
// with the seeded PRNG and partitioned in order. The unpinned IDs are
// sorted before shuffling so the result depends only on the ID set, the
// seed, and the reference, never on input order or platform.
func Assign(ids []string, ref Assignment, seed int64) Assignment {
	assignment := make(Assignment, len(ids))

	var unpinned []string
	for _, id := range ids {
		if split, ok := ref[id]; ok {
			assignment[id] = split
		} else {
			unpinned = append(unpinned, id)
		}
	}

	sort.Strings(unpinned)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(unpinned), func(i, j int) {
		unpinned[i], unpinned[j] = unpinned[j], unpinned[i]
	})

	nTrain, nValidation, _ := partitionSizes(len(unpinned))
	for i, id := range unpinned {
		switch {
		case i < nTrain:
			assignment[id] = Train
		case i < nTrain+nValidation:
			assignment[id] = Validation
		default:
			assignment[id] = Test
		}
	}

	return assignment
}

// Counts returns the number of singers per split label
func Counts(a Assignment) map[string]int {
	counts := make(map[string]int)
	for _, split := range a {
		counts[split]++
	}
	return counts
}

// normalizeLabel maps the legacy numeric and short split encodings found
// in older datasets onto the canonical labels
func normalizeLabel(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case Train, "0":
		return Train, true
	case Validation, "val", "1":
		return Validation, true
	case Test, "exp", "2":
		return Test, true
	}
	return "", false
}

// LoadReference reads a reference dataset's split manifest and returns
// its singer-ID assignment. Rows without a singer ID or with an
// unrecognized split label are skipped.
func LoadReference(path string) (Assignment, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference split: %w", err)
	}
	if err := m.RequireColumns(manifest.ColSingerID, manifest.ColSplit); err != nil {
		return nil, fmt.Errorf("reference split: %w", err)
	}

	ref := make(Assignment)
	for i := 0; i < m.Len(); i++ {
		id := m.Value(i, manifest.ColSingerID)
		if id == "" {
			continue
		}
		if label, ok := normalizeLabel(m.Value(i, manifest.ColSplit)); ok {
			ref[id] = label
		}
	}
	return ref, nil
}

// Annotate writes the assignment into the manifest's split column
func Annotate(m *manifest.Manifest, assignment Assignment) error {
	if err := m.RequireColumns(manifest.ColSingerID); err != nil {
		return err
	}
	m.AddColumn(manifest.ColSplit)
	for i := 0; i < m.Len(); i++ {
		id := m.Value(i, manifest.ColSingerID)
		if split, ok := assignment[id]; ok {
			if err := m.Set(i, manifest.ColSplit, split); err != nil {
				return err
			}
		}
	}
	return nil
}
