package reporting

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/detekt/kcheck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOutcome() *models.SuiteOutcome {
	return &models.SuiteOutcome{
		RunID:     "0b7c3c1e-4f0e-4a39-9a55-0d1f1d6a9c11",
		SuiteName: "style-rules",
		Timestamp: time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
		Setup: models.OutcomeSetup{
			Compiler:   "kotlinc",
			PluginJar:  "detekt-compiler-plugin.jar",
			TimeoutSec: 120,
		},
		Digest: models.OutcomeDigest{
			TotalCases:  4,
			Succeeded:   1,
			Failed:      1,
			Errors:      1,
			Skipped:     1,
			SuccessRate: 1.0 / 3.0,
			DurationMs:  3500,
			TopRules:    map[string]int{"MagicNumber": 2, "WildcardImport": 1},
		},
		CaseOutcomes: []models.CaseOutcome{
			{
				CaseID:      "magic-number",
				DisplayName: "flags magic numbers",
				Status:      models.StatusPassed,
				DurationMs:  1000,
				ExitCode:    models.ExitCodeOK,
				Analysis:    &models.AnalysisResult{Success: false, Violations: []string{"MagicNumber", "MagicNumber"}},
				Checks: []models.CheckResult{
					{Name: "magic", Kind: models.CheckKindRuleViolation, Passed: true},
				},
			},
			{
				CaseID:      "wildcard",
				DisplayName: "wildcard imports",
				Status:      models.StatusFailed,
				DurationMs:  1500,
				ExitCode:    models.ExitCodeOK,
				Analysis:    &models.AnalysisResult{Success: false, Violations: []string{"WildcardImport"}},
				Output:      "i: Running detekt\n",
				Checks: []models.CheckResult{
					{Name: "compilation", Kind: models.CheckKindCompilation, Passed: true},
					{Name: "clean", Kind: models.CheckKindNoViolations, Passed: false, Feedback: "Expected detekt violations to be 0 but was 1"},
				},
			},
			{
				CaseID:      "timeout",
				DisplayName: "slow case",
				Status:      models.StatusError,
				DurationMs:  1000,
				ErrorMsg:    "compiling: kotlinc did not finish within 2m0s",
				Checks:      []models.CheckResult{},
			},
			{
				CaseID:      "later",
				DisplayName: "later",
				Status:      models.StatusSkipped,
				Checks:      []models.CheckResult{},
			},
		},
	}
}

func TestConvertToJUnit_Structure(t *testing.T) {
	suites := ConvertToJUnit(newTestOutcome())

	assert.Equal(t, 4, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	assert.InDelta(t, 3.5, suites.Time, 0.001)
	require.Len(t, suites.TestSuites, 1)

	suite := suites.TestSuites[0]
	assert.Equal(t, "style-rules", suite.Name)
	assert.Equal(t, 1, suite.Skipped)
	assert.Equal(t, "2026-06-15T12:00:00Z", suite.Timestamp)
	require.Len(t, suite.TestCases, 4)

	props := map[string]string{}
	for _, p := range suite.Properties {
		props[p.Name] = p.Value
	}
	assert.Equal(t, "kotlinc", props["compiler"])
	assert.Equal(t, "detekt-compiler-plugin.jar", props["plugin_jar"])
	assert.Equal(t, "0.3333", props["success_rate"])
}

func TestConvertToJUnit_CaseStatuses(t *testing.T) {
	cases := ConvertToJUnit(newTestOutcome()).TestSuites[0].TestCases

	passed := cases[0]
	assert.Equal(t, "flags magic numbers", passed.Name)
	assert.Equal(t, "style-rules", passed.Classname)
	assert.InDelta(t, 1.0, passed.Time, 0.001)
	assert.Nil(t, passed.Failure)
	assert.Nil(t, passed.Error)
	assert.Empty(t, passed.SystemOut)

	failed := cases[1]
	require.NotNil(t, failed.Failure)
	assert.Equal(t, "CheckFailure", failed.Failure.Type)
	assert.Equal(t, "Expected detekt violations to be 0 but was 1", failed.Failure.Message)
	assert.Equal(t, "[FAIL] clean (no_violations): Expected detekt violations to be 0 but was 1\n", failed.Failure.Body)
	assert.Equal(t, "i: Running detekt\n", failed.SystemOut)

	errored := cases[2]
	require.NotNil(t, errored.Error)
	assert.Equal(t, "ExecutionError", errored.Error.Type)
	assert.Contains(t, errored.Error.Message, "did not finish within")

	require.NotNil(t, cases[3].Skipped)
}

func TestBuildFailure_SeveralChecks(t *testing.T) {
	co := &models.CaseOutcome{
		DisplayName: "x",
		Status:      models.StatusFailed,
		Checks: []models.CheckResult{
			{Name: "a", Kind: models.CheckKindNoViolations, Feedback: "one"},
			{Name: "b", Kind: models.CheckKindDetektStatus, Feedback: "two"},
		},
	}

	f := buildFailure(co)
	assert.Equal(t, "x: 2 check(s) failed", f.Message)
	assert.Equal(t, 2, strings.Count(f.Body, "[FAIL]"))
}

func TestBuildError_DefaultMessage(t *testing.T) {
	assert.Equal(t, "execution error", buildError(&models.CaseOutcome{}).Message)
}

func TestWriteJUnitXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junit.xml")
	require.NoError(t, WriteJUnitXML(newTestOutcome(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), xml.Header))

	var parsed JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &parsed))
	require.Len(t, parsed.TestSuites, 1)
	assert.Len(t, parsed.TestSuites[0].TestCases, 4)
	assert.Equal(t, "wildcard imports", parsed.TestSuites[0].TestCases[1].Name)
}

func TestWriteJUnitXML_BadPath(t *testing.T) {
	err := WriteJUnitXML(newTestOutcome(), filepath.Join(t.TempDir(), "missing", "junit.xml"))
	require.Error(t, err)
}
