package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/detekt/kcheck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compareFixture() (before, after *models.SuiteOutcome) {
	before = &models.SuiteOutcome{
		RunID: "before",
		Setup: models.OutcomeSetup{Compiler: "kotlinc"},
		Digest: models.OutcomeDigest{
			TotalCases: 3, SuccessRate: 2.0 / 3.0, DurationMs: 3000,
			TopRules: map[string]int{"MagicNumber": 2},
		},
		CaseOutcomes: []models.CaseOutcome{
			{CaseID: "magic", DisplayName: "magic", Status: models.StatusPassed,
				Analysis: &models.AnalysisResult{Violations: []string{"MagicNumber", "MagicNumber"}}},
			{CaseID: "clean", DisplayName: "clean", Status: models.StatusPassed,
				Analysis: &models.AnalysisResult{Success: true, Violations: []string{}}},
			{CaseID: "broken", DisplayName: "broken", Status: models.StatusFailed},
		},
	}
	after = &models.SuiteOutcome{
		RunID: "after",
		Setup: models.OutcomeSetup{Compiler: "kotlinc"},
		Digest: models.OutcomeDigest{
			TotalCases: 3, SuccessRate: 2.0 / 3.0, DurationMs: 2500,
			TopRules: map[string]int{"MagicNumber": 2, "WildcardImport": 1},
		},
		CaseOutcomes: []models.CaseOutcome{
			{CaseID: "magic", DisplayName: "magic", Status: models.StatusPassed,
				Analysis: &models.AnalysisResult{Violations: []string{"MagicNumber", "MagicNumber"}}},
			{CaseID: "clean", DisplayName: "clean", Status: models.StatusFailed,
				Analysis: &models.AnalysisResult{Violations: []string{"WildcardImport"}}},
			{CaseID: "broken", DisplayName: "broken", Status: models.StatusPassed},
			{CaseID: "new", DisplayName: "new case", Status: models.StatusPassed},
		},
	}
	return before, after
}

func TestCompare(t *testing.T) {
	before, after := compareFixture()
	c := Compare([]string{"a.json", "b.json"}, []*models.SuiteOutcome{before, after})

	assert.Equal(t, []string{"before", "after"}, c.RunIDs)
	assert.InDelta(t, 0, c.SuccessRateDelta, 1e-9)
	assert.Equal(t, int64(-500), c.DurationDeltaMs)

	require.Len(t, c.Cases, 4)
	magic, clean, broken, added := c.Cases[0], c.Cases[1], c.Cases[2], c.Cases[3]

	assert.Equal(t, []int{2, 2}, magic.Violations)
	assert.False(t, magic.Regressed)

	assert.Equal(t, []string{"passed", "failed"}, clean.Statuses)
	assert.Equal(t, 1, clean.ViolationDelta)
	assert.True(t, clean.Regressed)

	assert.Equal(t, []int{-1, -1}, broken.Violations)
	assert.Zero(t, broken.ViolationDelta)
	assert.True(t, broken.Fixed)

	assert.Equal(t, []string{StatusMissing, "passed"}, added.Statuses)
	assert.False(t, added.Fixed)

	assert.Equal(t, 1, c.Regressions)
	assert.Equal(t, 1, c.Fixes)

	assert.Equal(t, []RuleComparison{
		{Rule: "MagicNumber", Counts: []int{2, 2}, Delta: 0},
		{Rule: "WildcardImport", Counts: []int{0, 1}, Delta: 1},
	}, c.Rules)
}

func TestCompare_SkippedIsNotARegression(t *testing.T) {
	before := &models.SuiteOutcome{CaseOutcomes: []models.CaseOutcome{{CaseID: "a", Status: models.StatusPassed}}}
	after := &models.SuiteOutcome{CaseOutcomes: []models.CaseOutcome{{CaseID: "a", Status: models.StatusSkipped}}}

	c := Compare([]string{"a", "b"}, []*models.SuiteOutcome{before, after})
	assert.Zero(t, c.Regressions)
}

func TestLoadOutcome(t *testing.T) {
	dir := t.TempDir()
	before, _ := compareFixture()

	data, err := json.Marshal(before)
	require.NoError(t, err)
	path := filepath.Join(dir, "before.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := LoadOutcome(path)
	require.NoError(t, err)
	assert.Equal(t, "before", got.RunID)
	assert.Len(t, got.CaseOutcomes, 3)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadOutcome(bad)
	assert.ErrorContains(t, err, "decoding")

	_, err = LoadOutcome(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
