package reporting

import (
	"strings"
	"testing"

	"github.com/detekt/kcheck/internal/models"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCaseTable(t *testing.T) {
	table := FormatCaseTable(newTestOutcome())
	lines := strings.Split(strings.TrimSuffix(table, "\n"), "\n")
	require.Len(t, lines, 5)

	assert.True(t, strings.HasPrefix(lines[0], "CASE"))
	assert.Contains(t, lines[1], "flags magic numbers")
	assert.Contains(t, lines[1], "OK")
	assert.Contains(t, lines[1], "false")
	assert.True(t, strings.HasSuffix(lines[1], "1000ms"))
	assert.Contains(t, lines[3], "error")

	// STATUS column starts at the same display offset on every row
	col := strings.Index(lines[0], "STATUS")
	for _, l := range lines[1:] {
		assert.Equal(t, "  ", l[col-2:col])
	}
}

func TestFormatCaseTable_WideNames(t *testing.T) {
	outcome := &models.SuiteOutcome{
		CaseOutcomes: []models.CaseOutcome{
			{DisplayName: "マジックナンバー", Status: models.StatusPassed, Cached: true},
			{DisplayName: "ascii", Status: models.StatusFailed},
		},
	}

	lines := strings.Split(strings.TrimSuffix(FormatCaseTable(outcome), "\n"), "\n")
	require.Len(t, lines, 3)

	statusAt := func(l, status string) int {
		return runewidth.StringWidth(l[:strings.Index(l, status)])
	}
	assert.Equal(t, statusAt(lines[0], "STATUS"), statusAt(lines[1], "passed (cached)"))
	assert.Equal(t, statusAt(lines[0], "STATUS"), statusAt(lines[2], "failed"))
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 3))
	assert.Equal(t, "日本 ", padRight("日本", 5))
}

func TestFormatRuleCounts(t *testing.T) {
	got := formatRuleCounts(map[string]int{"WildcardImport": 1, "MagicNumber": 3, "LongMethod": 1})
	assert.Equal(t, "MagicNumber×3, LongMethod×1, WildcardImport×1", got)
}
