package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventIngest  EventType = "ingest"
	EventDedupe  EventType = "dedupe"
	EventRemove  EventType = "remove"
	EventAssign  EventType = "assign"
	EventRegroup EventType = "regroup"
	EventHash    EventType = "hash"
	EventSplit   EventType = "split"
	EventPairs   EventType = "pairs"
	EventSkip    EventType = "skip"
	EventError   EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in the pipeline
type Event struct {
	Timestamp time.Time         `json:"ts"`
	RunID     string            `json:"run_id,omitempty"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Track     string            `json:"track,omitempty"`
	Artist    string            `json:"artist,omitempty"`
	SingerID  string            `json:"singer_id,omitempty"`
	SrcPath   string            `json:"src_path,omitempty"`
	DestPath  string            `json:"dest_path,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file. Every event carries the
// run ID so forensic queries can separate interleaved runs in one
// artifacts directory.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    uuid.NewString(),
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogIngest logs a downloaded-and-split asset
func (l *EventLogger) LogIngest(track, uri string, segments int) error {
	return l.Log(&Event{
		Level:   LevelInfo,
		Event:   EventIngest,
		Track:   track,
		SrcPath: uri,
		Extra: map[string]string{
			"segments": fmt.Sprintf("%d", segments),
		},
	})
}

// LogRemoval logs one row of the destructive-filter removal set.
// Written BEFORE any manifest, mapping, or filesystem mutation so the
// audit trail survives a mid-step crash.
func (l *EventLogger) LogRemoval(track, artist, path, reason string) error {
	return l.Log(&Event{
		Level:   LevelWarning,
		Event:   EventRemove,
		Track:   track,
		Artist:  artist,
		SrcPath: path,
		Reason:  reason,
	})
}

// LogAssign logs a singer ID allocation
func (l *EventLogger) LogAssign(artist, singerID string, fresh bool) error {
	level := LevelDebug
	if fresh {
		level = LevelInfo
	}
	return l.Log(&Event{
		Level:    level,
		Event:    EventAssign,
		Artist:   artist,
		SingerID: singerID,
		Extra: map[string]string{
			"fresh": fmt.Sprintf("%t", fresh),
		},
	})
}

// LogMove logs a directory move performed by a reorganization pass
func (l *EventLogger) LogMove(event EventType, track, singerID, srcPath, destPath string) error {
	return l.Log(&Event{
		Level:    LevelDebug,
		Event:    event,
		Track:    track,
		SingerID: singerID,
		SrcPath:  srcPath,
		DestPath: destPath,
	})
}

// LogSkip logs a skipped asset with the reason
func (l *EventLogger) LogSkip(event EventType, track, reason string) error {
	return l.Log(&Event{
		Level:  LevelWarning,
		Event:  EventSkip,
		Track:  track,
		Reason: reason,
		Extra: map[string]string{
			"during": string(event),
		},
	})
}

// LogSplit logs a singer's split assignment
func (l *EventLogger) LogSplit(singerID, split string, pinned bool) error {
	return l.Log(&Event{
		Level:    LevelDebug,
		Event:    EventSplit,
		SingerID: singerID,
		Reason:   split,
		Extra: map[string]string{
			"pinned": fmt.Sprintf("%t", pinned),
		},
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, track string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		Track: track,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID returns the unique identifier of this pipeline run
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
