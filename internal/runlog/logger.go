// Package runlog records the lifecycle of a suite run as newline-delimited
// JSON events and renders recorded logs as a timeline.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogSuffix ends the name of every run log created by [DefaultLogPath].
const LogSuffix = "-run.jsonl"

// Logger defines the interface for run event logging.
type Logger interface {
	Log(event Event) error
	Close() error
}

// JSONLogger appends events as newline-delimited JSON (NDJSON). Every event
// is stamped with the id of the run most recently started through it; the
// stamp is dropped once that run completes or stops.
type JSONLogger struct {
	mu    sync.Mutex
	file  *os.File
	enc   *json.Encoder
	path  string
	runID string
}

// NewJSONLogger creates a logger that appends NDJSON to the given path.
// Parent directories are created automatically.
func NewJSONLogger(path string) (*JSONLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating run log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}

	return &JSONLogger{
		file: f,
		enc:  json.NewEncoder(f),
		path: path,
	}, nil
}

// Log writes a single event as one JSON line.
func (l *JSONLogger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Type == EventRunStart {
		l.runID, _ = event.Data["run_id"].(string)
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}
	if event.Type == EventRunComplete || event.Type == EventRunStopped {
		l.runID = ""
	}

	if err := l.enc.Encode(event); err != nil {
		return fmt.Errorf("writing %s event: %w", event.Type, err)
	}
	return nil
}

func (l *JSONLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *JSONLogger) Path() string {
	return l.path
}

// NopLogger discards all events.
type NopLogger struct{}

func (NopLogger) Log(Event) error { return nil }

func (NopLogger) Close() error { return nil }

// DefaultLogPath returns a timestamped run log path inside dir.
func DefaultLogPath(dir string, now time.Time) string {
	return filepath.Join(dir, now.UTC().Format("20060102T150405Z")+LogSuffix)
}
