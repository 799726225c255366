package runlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/detekt/kcheck/internal/models"
	"github.com/detekt/kcheck/internal/orchestration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	ev := NewEvent(EventRunStart, map[string]any{"key": "value"})
	assert.Equal(t, EventRunStart, ev.Type)
	assert.Equal(t, "value", ev.Data["key"])
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, time.UTC, ev.Timestamp.Location())
}

func TestCaseCompleteData(t *testing.T) {
	d := CaseCompleteData("magic", "flags magic numbers", "passed", true, 2, 1500)
	assert.Equal(t, true, d["cached"])
	assert.Equal(t, 2, d["violations"])

	d = CaseCompleteData("broken", "broken", "error", false, -1, 10)
	assert.NotContains(t, d, "cached")
	assert.NotContains(t, d, "violations")
}

func TestErrorData(t *testing.T) {
	d := ErrorData("kotlinc did not finish within 30s", map[string]any{"case_id": "slow"})
	assert.Equal(t, "kotlinc did not finish within 30s", d["message"])
	assert.Equal(t, "slow", d["case_id"])
}

func TestJSONLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "test-run.jsonl")

	logger, err := NewJSONLogger(path)
	require.NoError(t, err)
	assert.Equal(t, path, logger.Path())

	events := []Event{
		NewEvent(EventRunStart, RunStartData("suite.yaml", "run-1", "fake", 2)),
		NewEvent(EventCaseStart, CaseStartData("magic", "magic", 1, 2)),
		NewEvent(EventCaseComplete, CaseCompleteData("magic", "magic", "passed", false, 1, 500)),
		NewEvent(EventRunComplete, RunCompleteData(2, 2, 0, 0, 1000)),
	}
	for _, ev := range events {
		require.NoError(t, logger.Log(ev))
	}
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 4)

	var first Event
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, EventRunStart, first.Type)
	assert.Equal(t, "run-1", first.Data["run_id"])

	// a second logger appends instead of truncating
	logger, err = NewJSONLogger(path)
	require.NoError(t, err)
	require.NoError(t, logger.Log(NewEvent(EventRunStart, nil)))
	require.NoError(t, logger.Close())

	events, err = ReadEvents(path)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestJSONLogger_StampsRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared-run.jsonl")

	logger, err := NewJSONLogger(path)
	require.NoError(t, err)
	for _, ev := range []Event{
		NewEvent(EventRunStart, RunStartData("suite.yaml", "run-1", "fake", 1)),
		NewEvent(EventCaseStart, CaseStartData("magic", "magic", 1, 1)),
		NewEvent(EventRunComplete, RunCompleteData(1, 1, 0, 0, 100)),
		NewEvent(EventError, ErrorData("between runs", nil)),
		NewEvent(EventRunStart, RunStartData("suite.yaml", "run-2", "fake", 1)),
		NewEvent(EventRunStopped, ErrorData("interrupted", nil)),
	} {
		require.NoError(t, logger.Log(ev))
	}
	require.NoError(t, logger.Close())

	events, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 6)

	var ids []string
	for _, ev := range events {
		ids = append(ids, ev.RunID)
	}
	assert.Equal(t, []string{"run-1", "run-1", "run-1", "", "run-2", "run-2"}, ids)
}

func TestFilterRun(t *testing.T) {
	events := []Event{
		{Type: EventRunStart, RunID: "3f2a-1"},
		{Type: EventCaseStart, RunID: "3f2a-1"},
		{Type: EventError},
		{Type: EventRunStart, RunID: "9b7c-2"},
		{Type: EventRunComplete, RunID: "9b7c-2"},
	}

	got, err := FilterRun(events, "9b")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, EventRunStart, got[0].Type)
	assert.Equal(t, EventRunComplete, got[1].Type)

	got, err = FilterRun(events, "3f2a-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = FilterRun(events, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")

	_, err = FilterRun(events, "zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no run matching "zz"`)
}

func TestNopLogger(t *testing.T) {
	var logger Logger = NopLogger{}
	assert.NoError(t, logger.Log(NewEvent(EventRunStart, nil)))
	assert.NoError(t, logger.Close())
}

func TestDefaultLogPath(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join("logs", "20250115T103000Z-run.jsonl"), DefaultLogPath("logs", now))
}

func TestListLogs(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "20250115T100000Z-run.jsonl")
	newer := filepath.Join(dir, "20250116T100000Z-run.jsonl")
	require.NoError(t, os.WriteFile(older, []byte("{}\n{}\n"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir-run.jsonl"), 0o755))

	base := time.Now()
	require.NoError(t, os.Chtimes(older, base.Add(-time.Hour), base.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(newer, base, base))

	files, err := ListLogs(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "20250116T100000Z-run.jsonl", files[0].Name)
	assert.Equal(t, 1, files[0].NumEvents)
	assert.Equal(t, 2, files[1].NumEvents)
}

func TestListLogs_Empty(t *testing.T) {
	files, err := ListLogs(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = ListLogs(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReadEvents_SkipsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x-run.jsonl")
	content := `{"timestamp":"2025-01-15T10:00:00Z","type":"run_start","data":{}}
not valid json
{"timestamp":"2025-01-15T10:00:01Z","type":"run_complete","data":{}}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	events, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventRunComplete, events[1].Type)

	_, err = ReadEvents(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestRenderTimeline(t *testing.T) {
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, Type: EventRunStart, Data: RunStartData("suite.yaml", "run-1", "kotlinc", 2)},
		{Timestamp: base.Add(100 * time.Millisecond), Type: EventCaseStart, Data: CaseStartData("magic", "flags magic numbers", 1, 2)},
		{Timestamp: base.Add(200 * time.Millisecond), Type: EventCheckResult, Data: CheckResultData("magic", "rule_violation", "rule_violation", true, "")},
		{Timestamp: base.Add(300 * time.Millisecond), Type: EventCaseComplete, Data: CaseCompleteData("magic", "flags magic numbers", "passed", true, 1, 200)},
		{Timestamp: base.Add(400 * time.Millisecond), Type: EventError, Data: ErrorData("kotlinc did not finish within 30s", nil)},
		{Timestamp: base.Add(1500 * time.Millisecond), Type: EventRunComplete, Data: RunCompleteData(2, 1, 0, 1, 1500)},
	}

	var buf bytes.Buffer
	RenderTimeline(&buf, events)
	out := buf.String()

	assert.Contains(t, out, "RUN TIMELINE")
	assert.Contains(t, out, "Run started  suite=suite.yaml  compiler=kotlinc  cases=2")
	assert.Contains(t, out, "Case 1/2: flags magic numbers")
	assert.Contains(t, out, "✓ Check rule_violation (rule_violation)\n")
	assert.Contains(t, out, "Case complete: flags magic numbers [passed] (200ms) [cached]")
	assert.Contains(t, out, "Error: kotlinc did not finish within 30s")
	assert.Contains(t, out, "[   1.5s] 🏁 Run complete  1/2 succeeded  0 failed  1 errors  (1500ms)")
}

func TestRenderTimeline_Empty(t *testing.T) {
	var buf bytes.Buffer
	RenderTimeline(&buf, nil)
	assert.Equal(t, "No events found.\n", buf.String())
}

type memLogger struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *memLogger) Log(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *memLogger) Close() error { return nil }

func TestRecorder(t *testing.T) {
	logger := &memLogger{}
	rec := NewRecorder(logger, "suite.yaml")

	progress := []orchestration.ProgressEvent{
		{EventType: orchestration.EventRunStart, TotalCases: 3, Details: map[string]any{"run_id": "run-1", "compiler": "fake"}},
		{EventType: orchestration.EventCaseStart, CaseID: "magic", CaseName: "magic", CaseNum: 1, TotalCases: 3},
		{EventType: orchestration.EventCompilerOut, CaseID: "magic", Details: map[string]any{"output": "i: Running detekt\n"}},
		{EventType: orchestration.EventCheckResult, CaseID: "magic", Details: map[string]any{
			"check": "rule_violation", "check_type": models.CheckKindRuleViolation, "passed": true, "feedback": "",
		}},
		{EventType: orchestration.EventCaseComplete, CaseID: "magic", CaseName: "magic", Status: models.StatusPassed, DurationMs: 20,
			Details: map[string]any{"failed_checks": 0, "violations": 1}},
		{EventType: orchestration.EventCaseCached, CaseID: "clean", CaseName: "clean", Status: models.StatusPassed,
			Details: map[string]any{"failed_checks": 0, "violations": 0}},
		{EventType: orchestration.EventCaseComplete, CaseID: "slow", CaseName: "slow", Status: models.StatusError,
			Details: map[string]any{"failed_checks": 0, "error": "compiling: timed out"}},
		{EventType: orchestration.EventRunComplete, TotalCases: 3, DurationMs: 40,
			Details: map[string]any{"succeeded": 2, "failed": 0, "errors": 1, "skipped": 0}},
	}
	for _, e := range progress {
		rec.Listen(e)
	}

	var types []EventType
	for _, e := range logger.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{
		EventRunStart, EventCaseStart, EventCheckResult, EventCaseComplete,
		EventCaseComplete, EventError, EventCaseComplete, EventRunComplete,
	}, types)

	ev := logger.events
	assert.Equal(t, "suite.yaml", ev[0].Data["suite_path"])
	assert.Equal(t, "fake", ev[0].Data["compiler"])
	assert.Equal(t, "rule_violation", ev[2].Data["kind"])
	assert.Equal(t, 1, ev[3].Data["violations"])
	assert.Equal(t, true, ev[4].Data["cached"])
	assert.Equal(t, "slow", ev[5].Data["case_id"])
	assert.NotContains(t, ev[6].Data, "violations")
	assert.Equal(t, 2, ev[7].Data["succeeded"])
	assert.Equal(t, 1, ev[7].Data["errors"])
}

func TestRecorder_LogErrorsDoNotPanic(t *testing.T) {
	logger := &memLogger{err: errors.New("disk full")}
	rec := NewRecorder(logger, "suite.yaml")

	rec.Listen(orchestration.ProgressEvent{EventType: orchestration.EventRunStart})
	rec.Listen(orchestration.ProgressEvent{EventType: orchestration.EventRunStopped, Details: map[string]any{"reason": "fail_fast"}})

	require.Len(t, logger.events, 2)
	assert.Equal(t, EventRunStopped, logger.events[1].Type)
	assert.True(t, strings.HasPrefix(logger.events[1].Data["reason"].(string), "fail_fast"))
}
