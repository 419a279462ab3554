package audio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// interval is a half-open time range within a source file
type interval struct {
	start time.Duration
	end   time.Duration
}

func (iv interval) length() time.Duration { return iv.end - iv.start }

// FFmpegSplitter implements Splitter by shelling out to ffmpeg.
// Silence is located with the silencedetect filter, then each speech
// interval is exported as a mono wav segment.
type FFmpegSplitter struct {
	opts SplitOptions
}

// NewFFmpegSplitter creates a splitter with the given options
func NewFFmpegSplitter(opts SplitOptions) (*FFmpegSplitter, error) {
	if !FFmpegAvailable() {
		return nil, fmt.Errorf("ffmpeg and ffprobe are required on PATH")
	}
	if opts.MinSilence <= 0 || opts.MinSegment <= 0 {
		return nil, fmt.Errorf("invalid split options: %+v", opts)
	}
	return &FFmpegSplitter{opts: opts}, nil
}

// Split cuts srcPath on silence and writes segments into destDir
func (f *FFmpegSplitter) Split(ctx context.Context, srcPath, destDir string) (int, error) {
	duration, err := probeDuration(ctx, srcPath)
	if err != nil {
		return 0, err
	}

	silences, err := f.detectSilences(ctx, srcPath)
	if err != nil {
		return 0, err
	}

	keep := time.Duration(f.opts.KeepSilence) * time.Millisecond
	minSeg := time.Duration(f.opts.MinSegment) * time.Millisecond
	segments := speechIntervals(duration, silences, keep, minSeg)
	if len(segments) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create segment directory: %w", err)
	}

	for i, seg := range segments {
		name := fmt.Sprintf("%05d.wav", i+1)
		if err := f.export(ctx, srcPath, filepath.Join(destDir, name), seg); err != nil {
			return i, fmt.Errorf("segment %s: %w", name, err)
		}
	}
	return len(segments), nil
}

// detectSilences runs the silencedetect filter and parses its stderr log
func (f *FFmpegSplitter) detectSilences(ctx context.Context, srcPath string) ([]interval, error) {
	filter := fmt.Sprintf("silencedetect=noise=%ddB:d=%s",
		f.opts.Threshold, formatSeconds(time.Duration(f.opts.MinSilence)*time.Millisecond))

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-nostats",
		"-i", srcPath,
		"-af", filter,
		"-f", "null", "-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("silencedetect failed: %v: %s", err, lastLine(stderr.String()))
	}
	return parseSilenceLog(&stderr), nil
}

// export writes one mono segment of srcPath to destPath
func (f *FFmpegSplitter) export(ctx context.Context, srcPath, destPath string, seg interval) error {
	args := []string{
		"-hide_banner", "-nostats", "-y",
		"-ss", formatSeconds(seg.start),
		"-to", formatSeconds(seg.end),
		"-i", srcPath,
		"-ac", "1",
	}
	if f.opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(f.opts.SampleRate))
	}
	args = append(args, destPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg export failed: %v: %s", err, lastLine(stderr.String()))
	}
	return nil
}

// parseSilenceLog extracts silence intervals from ffmpeg's
// silencedetect output. Lines look like:
//
//	[silencedetect @ 0x...] silence_start: 12.345
//	[silencedetect @ 0x...] silence_end: 15.2 | silence_duration: 2.855
//
// A trailing silence_start with no matching end runs to the end of the
// file and is closed by speechIntervals via the total duration.
func parseSilenceLog(r *bytes.Buffer) []interval {
	var silences []interval
	var open *interval

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "silence_start:"); idx >= 0 {
			val := strings.TrimSpace(line[idx+len("silence_start:"):])
			if start, err := strconv.ParseFloat(val, 64); err == nil {
				open = &interval{start: secondsToDuration(start), end: -1}
			}
			continue
		}
		if idx := strings.Index(line, "silence_end:"); idx >= 0 && open != nil {
			rest := strings.TrimSpace(line[idx+len("silence_end:"):])
			if cut := strings.Index(rest, "|"); cut >= 0 {
				rest = strings.TrimSpace(rest[:cut])
			}
			if end, err := strconv.ParseFloat(rest, 64); err == nil {
				open.end = secondsToDuration(end)
				silences = append(silences, *open)
			}
			open = nil
		}
	}
	if open != nil {
		// silence runs to EOF
		silences = append(silences, *open)
	}
	return silences
}

// speechIntervals inverts silence intervals over [0, total), pads each
// speech interval by keep on both sides, and drops anything shorter
// than minSeg.
func speechIntervals(total time.Duration, silences []interval, keep, minSeg time.Duration) []interval {
	var speech []interval
	cursor := time.Duration(0)

	for _, s := range silences {
		end := s.end
		if end < 0 {
			end = total
		}
		if s.start > cursor {
			speech = append(speech, interval{start: cursor, end: s.start})
		}
		if end > cursor {
			cursor = end
		}
	}
	if cursor < total {
		speech = append(speech, interval{start: cursor, end: total})
	}

	var out []interval
	for _, iv := range speech {
		padded := interval{start: iv.start - keep, end: iv.end + keep}
		if padded.start < 0 {
			padded.start = 0
		}
		if padded.end > total {
			padded.end = total
		}
		if padded.length() >= minSeg {
			out = append(out, padded)
		}
	}
	return out
}

// probeDuration returns the container duration of the file at path
func probeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return 0, fmt.Errorf("ffprobe failed: %s", string(exitErr.Stderr))
		}
		return 0, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	var info struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &info); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe reported no duration for %s", path)
	}
	return secondsToDuration(seconds), nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// formatSeconds renders a duration as fractional seconds for ffmpeg args
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
