// Package audio turns a downloaded vocal track into the short,
// silence-free segments the dataset is built from. Splitting shells out
// to ffmpeg, so no audio decoding happens in-process.
package audio

import (
	"context"
	"os/exec"
)

// Splitter cuts one audio file into segments on disk.
type Splitter interface {
	// Split reads the audio at srcPath and writes numbered segment files
	// (00001.wav, 00002.wav, ...) into destDir. It returns the number of
	// segments written.
	Split(ctx context.Context, srcPath, destDir string) (int, error)
}

// SplitOptions control silence detection and segment filtering.
// All durations are in milliseconds.
type SplitOptions struct {
	// MinSilence is the minimum run of silence that splits two segments.
	MinSilence int

	// Threshold is the level in dB below which audio counts as silence.
	Threshold int

	// KeepSilence is how much silence to leave attached at segment edges.
	KeepSilence int

	// MinSegment drops any resulting segment shorter than this.
	MinSegment int

	// SampleRate resamples output segments when non-zero.
	SampleRate int
}

// DefaultSplitOptions returns the values used for building the dataset.
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{
		MinSilence:  2000,
		Threshold:   -40,
		KeepSilence: 100,
		MinSegment:  3000,
	}
}

// FFmpegAvailable reports whether ffmpeg and ffprobe are on PATH.
func FFmpegAvailable() bool {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return false
	}
	_, err := exec.LookPath("ffprobe")
	return err == nil
}
