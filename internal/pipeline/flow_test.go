package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/voiceset/internal/filter"
	"github.com/franz/voiceset/internal/identity"
	"github.com/franz/voiceset/internal/ingest"
	"github.com/franz/voiceset/internal/manifest"
	"github.com/franz/voiceset/internal/report"
	"github.com/franz/voiceset/internal/split"
)

// TestDatasetFlow drives dedupe, assign, and split over one fixture tree
// and checks the cross-step contract: spelling variants collapse to one
// singer, IDs are allocated in first-seen row order, and three singers
// partition 2/0/1 under the default seed.
func TestDatasetFlow(t *testing.T) {
	datasetDir := t.TempDir()
	audioDir := filepath.Join(datasetDir, "audio")

	artists := []string{
		"Alice", "ALICE", " alice", "Bob", "Alice",
		"Bob", "Cara", "Cara", "Bob", "Alice",
	}
	m := manifest.New([]string{"uri", "artist_name"})
	for i, artist := range artists {
		track := fmt.Sprintf("track%02d", i+1)
		if err := os.MkdirAll(filepath.Join(audioDir, track), 0755); err != nil {
			t.Fatalf("fixture setup: %v", err)
		}
		seg := filepath.Join(audioDir, track, "00001.wav")
		if err := os.WriteFile(seg, []byte("RIFF"), 0644); err != nil {
			t.Fatalf("fixture setup: %v", err)
		}
		m.Append(manifest.Row{fmt.Sprintf("gs://b/vocals/%s.wav", track), artist})
	}

	cols := manifest.DefaultColumns()
	mapping := identity.NewMapping()
	var assignment split.Assignment

	steps := []Step{
		{N: 2, Name: "dedupe", Prereqs: []string{"audio"}, Run: func(ctx context.Context) error {
			_, err := ingest.Dedupe(m, cols, audioDir, false, report.NullLogger())
			return err
		}},
		{N: 3, Name: "assign", Run: func(ctx context.Context) error {
			removals := filter.Plan(m, cols, filter.DefaultRules())
			if _, err := filter.Apply(ctx, m, mapping, removals, audioDir,
				report.NullLogger(), func() error { return nil }); err != nil {
				return err
			}
			names := make([]string, m.Len())
			for i := range names {
				names[i] = m.Value(i, cols.Artist)
			}
			assigner := &identity.Assigner{Mapping: mapping, Mode: identity.ModeFresh}
			ids, err := assigner.Assign(names)
			if err != nil {
				return err
			}
			m.AddColumn(manifest.ColSingerID)
			for i, id := range ids {
				if err := m.Set(i, manifest.ColSingerID, id); err != nil {
					return err
				}
			}
			return nil
		}},
		{N: 6, Name: "split", Run: func(ctx context.Context) error {
			seen := make(map[string]bool)
			var ids []string
			for i := 0; i < m.Len(); i++ {
				id := m.Value(i, manifest.ColSingerID)
				if id != "" && !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
			assignment = split.Assign(ids, nil, split.DefaultSeed)
			return split.Annotate(m, assignment)
		}},
	}

	driver, err := NewDriver(datasetDir, steps)
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}
	if err := driver.Run(context.Background(), 2, 0); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if mapping.Len() != 3 {
		t.Fatalf("mapping has %d singers, want 3", mapping.Len())
	}
	for name, want := range map[string]string{
		"Alice": "id00001",
		"Bob":   "id00002",
		"Cara":  "id00003",
	} {
		id, ok := mapping.Resolve(name)
		if !ok || id != want {
			t.Errorf("Resolve(%q) = %q, %t; want %s", name, id, ok, want)
		}
	}
	if id, _ := mapping.Resolve(" ALICE "); id != "id00001" {
		t.Errorf("spelling variant resolved to %q, want id00001", id)
	}

	if m.Len() != 10 {
		t.Fatalf("manifest rows = %d, want 10", m.Len())
	}
	for i := 0; i < m.Len(); i++ {
		id, _ := mapping.Resolve(m.Value(i, cols.Artist))
		if got := m.Value(i, manifest.ColSingerID); got != id {
			t.Errorf("row %d singer_id = %q, want %q", i, got, id)
		}
	}

	// floor(3*0.8), floor(3*0.1), remainder
	counts := split.Counts(assignment)
	if counts[split.Train] != 2 || counts[split.Validation] != 0 || counts[split.Test] != 1 {
		t.Errorf("split counts = %d/%d/%d, want 2/0/1",
			counts[split.Train], counts[split.Validation], counts[split.Test])
	}
	for i := 0; i < m.Len(); i++ {
		if m.Value(i, manifest.ColSplit) == "" {
			t.Errorf("row %d has no split label", i)
		}
	}
}
