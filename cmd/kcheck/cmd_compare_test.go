package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/detekt/kcheck/internal/reporting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveRun runs the test suite with cleanOutput replayed for the "clean" case
// and returns the saved results file.
func saveRun(t *testing.T, dir, name, cleanOutput string) string {
	t.Helper()
	writeTestFile(t, filepath.Join(dir, "fake", "clean.log"), cleanOutput)
	path := filepath.Join(dir, name)
	_, _ = executeCommand(t, nil, "run", "suite.yaml", "--compiler", "fake", "-o", path)
	return path
}

func TestCompareCommand_Table(t *testing.T) {
	dir := writeSuite(t, cleanLog)
	t.Chdir(dir)

	before := saveRun(t, dir, "before.json", cleanLog)
	after := saveRun(t, dir, "after.json", wildcardLog)

	out, err := executeCommand(t, nil, "compare", before, after)
	require.NoError(t, err)

	assert.Contains(t, out, "COMPARISON REPORT")
	assert.Contains(t, out, "[1] "+before+"  (compiler: fake)")
	assert.Contains(t, out, "-50.0%")
	assert.Contains(t, out, "0 → 1  ↓ regressed")
	assert.Contains(t, out, "WildcardImport")
	assert.Contains(t, out, "Regressions: 1  Fixes: 0")

	var cleanLine string
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, "clean file") {
			cleanLine = l
		}
	}
	assert.Contains(t, cleanLine, "passed")
	assert.Contains(t, cleanLine, "failed")
}

func TestCompareCommand_JSONAndFailOnRegression(t *testing.T) {
	dir := writeSuite(t, cleanLog)
	t.Chdir(dir)

	before := saveRun(t, dir, "before.json", cleanLog)
	after := saveRun(t, dir, "after.json", wildcardLog)

	out, err := executeCommand(t, nil, "compare", "--format", "json", before, after)
	require.NoError(t, err)
	var report reporting.Comparison
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Regressions)

	_, err = executeCommand(t, nil, "compare", "--fail-on-regression", before, after)
	require.Error(t, err)
	assert.Equal(t, "1 case(s) regressed", err.Error())
	assert.Equal(t, ExitTestFailed, exitCode(err))

	// reversed order is a fix, not a regression
	out, err = executeCommand(t, nil, "compare", "--fail-on-regression", after, before)
	require.NoError(t, err)
	assert.Contains(t, out, "↑ fixed")
}

func TestCompareCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := executeCommand(t, nil, "compare", "only-one.json")
	assert.Error(t, err)

	_, err = executeCommand(t, nil, "compare", "--format", "xml", "a.json", "b.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")

	_, err = executeCommand(t, nil, "compare", filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}
