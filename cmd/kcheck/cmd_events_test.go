package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/detekt/kcheck/internal/runlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsCommand_ListAndView(t *testing.T) {
	dir := writeSuite(t, cleanLog)
	t.Chdir(dir)
	logDir := filepath.Join(dir, "runs")
	require.NoError(t, os.Mkdir(logDir, 0o755))

	_, err := executeCommand(t, nil, "run", "suite.yaml", "--compiler", "fake", "--event-log", logDir)
	require.NoError(t, err)

	out, err := executeCommand(t, nil, "events", "list", "--dir", logDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Events")
	assert.Contains(t, out, "-run.jsonl")

	logs, err := filepath.Glob(filepath.Join(logDir, "*-run.jsonl"))
	require.NoError(t, err)
	require.Len(t, logs, 1)

	out, err = executeCommand(t, nil, "events", "view", logs[0])
	require.NoError(t, err)
	assert.Contains(t, out, "RUN TIMELINE")
	assert.Contains(t, out, "Run started  suite=suite.yaml  compiler=fake  cases=2")
	assert.Contains(t, out, "Case 2/2: clean file")
	assert.Contains(t, out, "Case complete: clean file [passed]")
	assert.Contains(t, out, "Run complete  2/2 succeeded  0 failed  0 errors")
}

func TestEventsCommand_ViewOneRunOfShared(t *testing.T) {
	dir := writeSuite(t, cleanLog)
	t.Chdir(dir)
	logPath := filepath.Join(dir, "shared.jsonl")

	_, err := executeCommand(t, nil, "run", "suite.yaml", "--compiler", "fake", "--event-log", logPath)
	require.NoError(t, err)
	writeTestFile(t, filepath.Join(dir, "fake", "clean.log"), wildcardLog)
	_, err = executeCommand(t, nil, "run", "suite.yaml", "--compiler", "fake", "--event-log", logPath)
	require.Error(t, err)

	events, err := runlog.ReadEvents(logPath)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	secondRun := events[len(events)-1].RunID
	require.NotEmpty(t, secondRun)

	out, err := executeCommand(t, nil, "events", "view", logPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Run started"))

	out, err = executeCommand(t, nil, "events", "view", logPath, "--run", secondRun[:8])
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Run started"))
	assert.Contains(t, out, "Run complete  1/2 succeeded  1 failed  0 errors")

	_, err = executeCommand(t, nil, "events", "view", logPath, "--run", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no run matching "nope"`)
}

func TestEventsCommand_Empty(t *testing.T) {
	out, err := executeCommand(t, nil, "events", "list", "--dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No event logs found.")
}

func TestEventsCommand_Errors(t *testing.T) {
	_, err := executeCommand(t, nil, "events", "list", "--dir", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing event logs")

	_, err = executeCommand(t, nil, "events", "view", filepath.Join(t.TempDir(), "missing.jsonl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading event log")

	_, err = executeCommand(t, nil, "events", "view")
	assert.Error(t, err)
}
