package reporting

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/detekt/kcheck/internal/models"
	"github.com/mattn/go-runewidth"
)

// FormatCaseTable renders one row per case with columns aligned by display
// width, so case names with wide characters don't skew the layout.
func FormatCaseTable(outcome *models.SuiteOutcome) string {
	header := []string{"CASE", "STATUS", "EXIT", "DETEKT", "VIOLATIONS", "TIME"}
	rows := [][]string{header}

	for i := range outcome.CaseOutcomes {
		co := &outcome.CaseOutcomes[i]

		detekt, violations := "-", "-"
		if co.Analysis != nil {
			detekt = fmt.Sprintf("%t", co.Analysis.Success)
			violations = fmt.Sprintf("%d", len(co.Analysis.Violations))
		}

		exit := string(co.ExitCode)
		if exit == "" {
			exit = "-"
		}

		status := string(co.Status)
		if co.Cached {
			status += " (cached)"
		}

		rows = append(rows, []string{
			co.DisplayName,
			status,
			exit,
			detekt,
			violations,
			fmt.Sprintf("%dms", co.DurationMs),
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(padRight(cell, widths[i]))
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// formatRuleCounts lists rules by descending count, ties broken by name.
func formatRuleCounts(counts map[string]int) string {
	rules := make([]string, 0, len(counts))
	for r := range counts {
		rules = append(rules, r)
	}
	slices.SortFunc(rules, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, fmt.Sprintf("%s×%d", r, counts[r]))
	}
	return strings.Join(parts, ", ")
}
