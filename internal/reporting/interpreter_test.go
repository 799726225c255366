package reporting

import (
	"strings"
	"testing"

	"github.com/detekt/kcheck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretPassRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want string
	}{
		{"all passed", 1.0, "All cases passed (100%)"},
		{"most high", 0.99, "Most cases passed (99%)"},
		{"most boundary", 0.80, "Most cases passed (80%)"},
		{"half high", 0.79, "About half the cases passed (79%)"},
		{"half boundary", 0.50, "About half the cases passed (50%)"},
		{"few", 0.49, "Few cases passed (49%)"},
		{"none", 0.0, "Few cases passed (0%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpretPassRate(tt.rate))
		})
	}
}

func TestInterpretCase(t *testing.T) {
	tests := []struct {
		name    string
		outcome models.CaseOutcome
		want    string
	}{
		{
			name:    "skipped",
			outcome: models.CaseOutcome{Status: models.StatusSkipped},
			want:    "Not run because an earlier case failed and fail_fast is set.",
		},
		{
			name:    "error",
			outcome: models.CaseOutcome{Status: models.StatusError, ErrorMsg: "kotlinc not found"},
			want:    "The case could not be evaluated: kotlinc not found",
		},
		{
			name:    "no detekt run",
			outcome: models.CaseOutcome{Status: models.StatusFailed, ExitCode: models.ExitCodeCompilationError},
			want:    "Failed to compile; detekt never reported a status.",
		},
		{
			name: "clean",
			outcome: models.CaseOutcome{
				Status:   models.StatusPassed,
				ExitCode: models.ExitCodeOK,
				Analysis: &models.AnalysisResult{Success: true, Violations: []string{}},
			},
			want: "Compiled cleanly; detekt succeeded with no violations.",
		},
		{
			name: "one violation",
			outcome: models.CaseOutcome{
				Status:   models.StatusPassed,
				ExitCode: models.ExitCodeOK,
				Analysis: &models.AnalysisResult{Success: false, Violations: []string{"MagicNumber"}},
			},
			want: "Compiled cleanly; detekt failed with 1 violation (MagicNumber).",
		},
		{
			name: "duplicates are listed once",
			outcome: models.CaseOutcome{
				Status:   models.StatusPassed,
				ExitCode: models.ExitCodeInternalError,
				Analysis: &models.AnalysisResult{Success: false, Violations: []string{"MagicNumber", "WildcardImport", "MagicNumber"}},
			},
			want: "kotlinc stopped with INTERNAL_ERROR; detekt failed with 3 violations (MagicNumber, WildcardImport).",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpretCase(&tt.outcome))
		})
	}
}

func TestFormatSummaryReport(t *testing.T) {
	report := FormatSummaryReport(newTestOutcome())

	require.True(t, strings.HasPrefix(report, "=== Interpretation ===\n\n"))
	assert.Contains(t, report, "Pass Rate:     Few cases passed (33%)")
	assert.Contains(t, report, "Duration:      3.5s")
	assert.Contains(t, report, "Cases:         1 passed, 1 failed, 1 errors, 1 skipped out of 4 total")
	assert.Contains(t, report, "Rules hit:     MagicNumber×2, WildcardImport×1")
	assert.NotContains(t, report, "Cache:")

	assert.Contains(t, report, "  ✓ flags magic numbers: passed")
	assert.Contains(t, report, "  ✗ wildcard imports: failed")
	assert.Contains(t, report, "    - clean: Expected detekt violations to be 0 but was 1")
	assert.Contains(t, report, "  - later: skipped")
}

func TestFormatSummaryReport_Cached(t *testing.T) {
	outcome := newTestOutcome()
	outcome.Digest.Cached = 2

	assert.Contains(t, FormatSummaryReport(outcome), "Cache:         2 case(s) served from cache")
}
