// Package pipeline sequences the dataset-building steps. Each step
// declares the artifacts it needs and produces; artifact existence is
// the resume checkpoint, so there is no separate progress log.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/franz/voiceset/internal/util"
)

// Step is one numbered pipeline stage
type Step struct {
	N    int
	Name string

	// Prereqs are artifact paths relative to the dataset dir that must
	// exist before the step can run.
	Prereqs []string

	// Outputs are the artifacts the step produces, relative to the
	// dataset dir. Informational (used by status reporting).
	Outputs []string

	Run func(ctx context.Context) error
}

// Driver runs an ordered sequence of steps against one dataset dir
type Driver struct {
	datasetDir string
	steps      []Step
}

// NewDriver creates a driver over the given steps. Steps must be
// registered in ascending order of N.
func NewDriver(datasetDir string, steps []Step) (*Driver, error) {
	for i, s := range steps {
		if s.Run == nil {
			return nil, fmt.Errorf("step %d (%s) has no run function", s.N, s.Name)
		}
		if i > 0 && steps[i-1].N >= s.N {
			return nil, fmt.Errorf("steps out of order: %d before %d", steps[i-1].N, s.N)
		}
	}
	return &Driver{datasetDir: datasetDir, steps: steps}, nil
}

// Steps returns the registered steps
func (d *Driver) Steps() []Step {
	return d.steps
}

// CheckPrereqs verifies that every prerequisite artifact of the step
// exists, returning an error wrapping util.ErrPrerequisite otherwise.
func (d *Driver) CheckPrereqs(s Step) error {
	for _, rel := range s.Prereqs {
		path := filepath.Join(d.datasetDir, rel)
		if !util.FileExists(path) && !util.DirExists(path) {
			return fmt.Errorf("%w: step %d (%s) needs %s; run the earlier steps first",
				util.ErrPrerequisite, s.N, s.Name, path)
		}
	}
	return nil
}

// Run executes steps with start <= N <= stop (inclusive bounds).
// A stop of 0 means run through the last step.
func (d *Driver) Run(ctx context.Context, start, stop int) error {
	if len(d.steps) == 0 {
		return fmt.Errorf("no steps registered")
	}
	first := d.steps[0].N
	last := d.steps[len(d.steps)-1].N
	if stop == 0 {
		stop = last
	}
	if start < first || start > last {
		return fmt.Errorf("start step %d out of range %d-%d", start, first, last)
	}
	if stop < start || stop > last {
		return fmt.Errorf("stop step %d out of range %d-%d", stop, start, last)
	}

	for _, s := range d.steps {
		if s.N < start || s.N > stop {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := d.CheckPrereqs(s); err != nil {
			return err
		}

		util.InfoLog("Step %d: %s", s.N, s.Name)
		if err := s.Run(ctx); err != nil {
			return fmt.Errorf("step %d (%s) failed: %w", s.N, s.Name, err)
		}
	}
	return nil
}
