package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/detekt/kcheck/internal/detektlog"
	"github.com/detekt/kcheck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const magicOutput = "w: some unrelated warning\n" +
	"i: Running detekt\n" +
	detektlog.ViolationPrefix + "MagicNumber - [main] at Hello.kt:1:28\n" +
	"i: Success?: false\n"

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple", "simple"},
		{"Magic Number", "magic-number"},
		{"cases/with/slashes", "caseswithslashes"},
		{"special@chars!", "specialchars"},
		{"", "unnamed"},
		{"  spaces  ", "spaces"},
		{"Mixed-Case_Test", "mixed-case_test"},
		{"v1.2", "v1.2"},
		{"..hidden..", "hidden"},
		{"@@@", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeName(tt.input))
		})
	}
}

func TestFilename(t *testing.T) {
	ts := time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)
	assert.Equal(t, "magic-number-20250615-143045.json", Filename("Magic Number", ts))

	// always formatted in UTC
	local := ts.In(time.FixedZone("CEST", 2*60*60))
	assert.Equal(t, "magic-number-20250615-143045.json", Filename("Magic Number", local))
}

func newOutcome() *models.CaseOutcome {
	return &models.CaseOutcome{
		CaseID:      "magic",
		DisplayName: "flags magic numbers",
		Status:      models.StatusPassed,
		DurationMs:  1500,
		ExitCode:    models.ExitCodeOK,
		Output:      magicOutput,
		Analysis:    &models.AnalysisResult{Success: false, Violations: []string{"MagicNumber"}},
		Checks: []models.CheckResult{
			{Name: "rule_violation", Kind: models.CheckKindRuleViolation, Passed: true, Feedback: "MagicNumber reported"},
		},
	}
}

func TestBuild(t *testing.T) {
	start := time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)
	sources := []models.SourceFile{{Path: "Hello.kt", Content: "val x = 42\n"}}

	tr := Build("style", sources, newOutcome(), start)

	assert.Equal(t, "style", tr.SuiteName)
	assert.Equal(t, "magic", tr.CaseID)
	assert.Equal(t, "flags magic numbers", tr.CaseName)
	assert.Equal(t, models.StatusPassed, tr.Status)
	assert.Equal(t, start, tr.StartedAt)
	assert.Equal(t, start.Add(1500*time.Millisecond), tr.CompletedAt)
	assert.Equal(t, sources, tr.Sources)
	assert.Equal(t, models.ExitCodeOK, tr.ExitCode)
	assert.Equal(t, magicOutput, tr.Output)
	assert.Equal(t, []string{
		"i: Running detekt",
		detektlog.ViolationPrefix + "MagicNumber - [main] at Hello.kt:1:28",
		"i: Success?: false",
	}, tr.RunBlock)
	require.Len(t, tr.Checks, 1)
	assert.True(t, tr.Checks[0].Passed)
}

func TestBuild_ErrorCase(t *testing.T) {
	outcome := &models.CaseOutcome{
		CaseID:   "timeout",
		Status:   models.StatusError,
		ErrorMsg: "compiling: kotlinc did not finish within 2m0s",
	}

	tr := Build("style", nil, outcome, time.Now())

	assert.NotNil(t, tr.Sources)
	assert.Empty(t, tr.Sources)
	assert.Empty(t, tr.RunBlock)
	assert.Nil(t, tr.Analysis)
	assert.Equal(t, "compiling: kotlinc did not finish within 2m0s", tr.ErrorMsg)
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "transcripts")
	start := time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)
	tr := Build("style", []models.SourceFile{{Path: "Hello.kt", Content: "val x = 42\n"}}, newOutcome(), start)

	path, err := Write(dir, tr)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "magic-20250615-143045.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got models.CaseTranscript
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "magic", got.CaseID)
	assert.Equal(t, "style", got.SuiteName)
	assert.Equal(t, tr.RunBlock, got.RunBlock)
	assert.Equal(t, []string{"MagicNumber"}, got.Analysis.Violations)
	assert.True(t, got.StartedAt.Equal(start))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "run_block")
	assert.Contains(t, raw, "sources")
	assert.NotContains(t, raw, "error_msg")
}

func TestWrite_BadDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Write(filepath.Join(blocker, "sub"), Build("style", nil, newOutcome(), time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create transcript dir")
}
