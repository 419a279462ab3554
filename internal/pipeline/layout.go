package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Stage names the shape of the audio/ tree as the pipeline reworks it
type Stage string

const (
	// StageFlat: audio/<track>/NNNNN.wav (after ingest)
	StageFlat Stage = "flat"
	// StageSinger: audio/<singer_id>/<track>/ (after regroup)
	StageSinger Stage = "singer"
	// StageHashed: audio/<singer_id>/<md5>/ (after hashnames)
	StageHashed Stage = "hashed"
	// StageSplit: audio/<split>/<singer_id>/... (after split)
	StageSplit Stage = "split"
)

// LayoutFile is the artifact name recording the audio-tree stage
const LayoutFile = "layout.json"

// Layout records which reorganization passes have run on a dataset
type Layout struct {
	Stage     Stage     `json:"stage"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReadLayout loads the layout record from datasetDir. A missing file
// means no reorganization has run yet and reports StageFlat.
func ReadLayout(datasetDir string) (*Layout, error) {
	path := filepath.Join(datasetDir, LayoutFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Layout{Stage: StageFlat}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", LayoutFile, err)
	}

	var layout Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", LayoutFile, err)
	}
	return &layout, nil
}

// WriteLayout records the current audio-tree stage in datasetDir
func WriteLayout(datasetDir string, stage Stage) error {
	layout := Layout{Stage: stage, UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(datasetDir, LayoutFile)
	tmp, err := os.CreateTemp(datasetDir, ".layout-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp layout: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write layout: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp layout: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
