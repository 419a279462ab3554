package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/voiceset/internal/util"
)

func noop(context.Context) error { return nil }

func TestDriverRunsRange(t *testing.T) {
	datasetDir := t.TempDir()
	var ran []int
	record := func(n int) func(context.Context) error {
		return func(context.Context) error {
			ran = append(ran, n)
			return nil
		}
	}

	d, err := NewDriver(datasetDir, []Step{
		{N: 1, Name: "one", Run: record(1)},
		{N: 2, Name: "two", Run: record(2)},
		{N: 3, Name: "three", Run: record(3)},
	})
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}

	if err := d.Run(context.Background(), 2, 3); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ran) != 2 || ran[0] != 2 || ran[1] != 3 {
		t.Errorf("ran steps %v, want [2 3]", ran)
	}
}

func TestDriverStopZeroMeansLast(t *testing.T) {
	var ran []int
	d, err := NewDriver(t.TempDir(), []Step{
		{N: 1, Name: "one", Run: func(context.Context) error { ran = append(ran, 1); return nil }},
		{N: 2, Name: "two", Run: func(context.Context) error { ran = append(ran, 2); return nil }},
	})
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}
	if err := d.Run(context.Background(), 1, 0); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ran) != 2 {
		t.Errorf("ran steps %v, want all", ran)
	}
}

func TestDriverBoundsValidation(t *testing.T) {
	d, err := NewDriver(t.TempDir(), []Step{{N: 1, Name: "one", Run: noop}})
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}

	if err := d.Run(context.Background(), 5, 0); err == nil {
		t.Error("expected error for start out of range")
	}
	if err := d.Run(context.Background(), 1, 9); err == nil {
		t.Error("expected error for stop out of range")
	}
}

func TestDriverPrereqCheck(t *testing.T) {
	datasetDir := t.TempDir()
	d, err := NewDriver(datasetDir, []Step{
		{N: 1, Name: "needs-manifest", Prereqs: []string{"data.csv"}, Run: noop},
	})
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}

	err = d.Run(context.Background(), 1, 1)
	if !errors.Is(err, util.ErrPrerequisite) {
		t.Fatalf("expected ErrPrerequisite, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(datasetDir, "data.csv"), []byte("uri\n"), 0644); err != nil {
		t.Fatalf("fixture setup: %v", err)
	}
	if err := d.Run(context.Background(), 1, 1); err != nil {
		t.Errorf("Run failed with prereq present: %v", err)
	}
}

func TestDriverRejectsUnorderedSteps(t *testing.T) {
	_, err := NewDriver(t.TempDir(), []Step{
		{N: 2, Name: "two", Run: noop},
		{N: 1, Name: "one", Run: noop},
	})
	if err == nil {
		t.Error("expected error for unordered steps")
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	datasetDir := t.TempDir()

	layout, err := ReadLayout(datasetDir)
	if err != nil {
		t.Fatalf("ReadLayout failed: %v", err)
	}
	if layout.Stage != StageFlat {
		t.Errorf("missing layout stage = %s, want %s", layout.Stage, StageFlat)
	}

	if err := WriteLayout(datasetDir, StageHashed); err != nil {
		t.Fatalf("WriteLayout failed: %v", err)
	}
	layout, err = ReadLayout(datasetDir)
	if err != nil {
		t.Fatalf("ReadLayout failed: %v", err)
	}
	if layout.Stage != StageHashed {
		t.Errorf("stage = %s, want %s", layout.Stage, StageHashed)
	}
	if layout.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not recorded")
	}
}
