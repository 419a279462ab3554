package audio

import (
	"bytes"
	"testing"
	"time"
)

func sec(s float64) time.Duration { return secondsToDuration(s) }

func TestParseSilenceLog(t *testing.T) {
	log := `Input #0, wav, from 'x.wav':
[silencedetect @ 0x55d] silence_start: 10.5
[silencedetect @ 0x55d] silence_end: 14.25 | silence_duration: 3.75
frame= 1000
[silencedetect @ 0x55d] silence_start: 30
[silencedetect @ 0x55d] silence_end: 33.1 | silence_duration: 3.1
`
	silences := parseSilenceLog(bytes.NewBufferString(log))
	if len(silences) != 2 {
		t.Fatalf("expected 2 silences, got %d", len(silences))
	}
	if silences[0].start != sec(10.5) || silences[0].end != sec(14.25) {
		t.Errorf("first silence = %v..%v", silences[0].start, silences[0].end)
	}
	if silences[1].start != sec(30) || silences[1].end != sec(33.1) {
		t.Errorf("second silence = %v..%v", silences[1].start, silences[1].end)
	}
}

func TestParseSilenceLogTrailingSilence(t *testing.T) {
	log := `[silencedetect @ 0x55d] silence_start: 55.0
`
	silences := parseSilenceLog(bytes.NewBufferString(log))
	if len(silences) != 1 {
		t.Fatalf("expected 1 silence, got %d", len(silences))
	}
	if silences[0].end >= 0 {
		t.Errorf("trailing silence should stay open, got end %v", silences[0].end)
	}
}

func TestSpeechIntervals(t *testing.T) {
	total := sec(60)
	silences := []interval{
		{start: sec(10), end: sec(14)},
		{start: sec(30), end: sec(34)},
		{start: sec(55), end: -1},
	}

	out := speechIntervals(total, silences, 100*time.Millisecond, 3*time.Second)
	if len(out) != 3 {
		t.Fatalf("expected 3 speech intervals, got %d: %v", len(out), out)
	}

	// each interval carries 100ms padding, clamped at file start
	pad := 100 * time.Millisecond
	if out[0].start != 0 || out[0].end != sec(10)+pad {
		t.Errorf("first interval = %v..%v", out[0].start, out[0].end)
	}
	if out[1].start != sec(14)-pad || out[1].end != sec(30)+pad {
		t.Errorf("second interval = %v..%v", out[1].start, out[1].end)
	}
	if out[2].start != sec(34)-pad || out[2].end != sec(55)+pad {
		t.Errorf("third interval = %v..%v", out[2].start, out[2].end)
	}
}

func TestSpeechIntervalsDropsShort(t *testing.T) {
	total := sec(20)
	silences := []interval{
		{start: sec(2), end: sec(18)},
	}

	// both remaining speech intervals are ~2s, below the 3s floor
	out := speechIntervals(total, silences, 0, 3*time.Second)
	if len(out) != 0 {
		t.Errorf("expected no intervals, got %v", out)
	}
}

func TestSpeechIntervalsNoSilence(t *testing.T) {
	total := sec(45)
	out := speechIntervals(total, nil, 100*time.Millisecond, 3*time.Second)
	if len(out) != 1 {
		t.Fatalf("expected one full-file interval, got %v", out)
	}
	if out[0].start != 0 || out[0].end != total {
		t.Errorf("interval = %v..%v", out[0].start, out[0].end)
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(sec(12.345)); got != "12.345" {
		t.Errorf("formatSeconds = %q", got)
	}
	if got := formatSeconds(0); got != "0.000" {
		t.Errorf("formatSeconds(0) = %q", got)
	}
}
