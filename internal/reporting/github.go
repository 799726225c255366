package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/detekt/kcheck/internal/models"
)

// formatDuration keeps sub-second durations in milliseconds so the output
// doesn't depend on time.Duration's formatting.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.String()
}

// FormatGitHubComment formats a SuiteOutcome as a markdown comment for GitHub PRs
func FormatGitHubComment(outcome *models.SuiteOutcome) string {
	var b strings.Builder

	digest := outcome.Digest
	duration := time.Duration(digest.DurationMs) * time.Millisecond

	b.WriteString(fmt.Sprintf("## 🔍 kcheck results: %s\n\n", outcome.SuiteName))

	statusIcon := "✅ Passed"
	if digest.Failed > 0 || digest.Errors > 0 {
		statusIcon = "❌ Failed"
	}

	b.WriteString(fmt.Sprintf("**Status:** %s | **Success Rate:** %.1f%% | **Duration:** %s\n\n",
		statusIcon, digest.SuccessRate*100, formatDuration(duration)))

	b.WriteString(fmt.Sprintf("- **Cases:** %d total, %d passed, %d failed, %d errors, %d skipped\n",
		digest.TotalCases, digest.Succeeded, digest.Failed, digest.Errors, digest.Skipped))
	b.WriteString(fmt.Sprintf("- **Compiler:** %s\n", outcome.Setup.Compiler))
	if len(digest.TopRules) > 0 {
		b.WriteString(fmt.Sprintf("- **Rules hit:** %s\n", formatRuleCounts(digest.TopRules)))
	}
	b.WriteString("\n")

	b.WriteString("### Case Results\n\n")
	b.WriteString("| Case | Status | Exit code | detekt | Violations |\n")
	b.WriteString("|------|--------|-----------|--------|------------|\n")

	for i := range outcome.CaseOutcomes {
		co := &outcome.CaseOutcomes[i]

		icon := "✅"
		switch co.Status {
		case models.StatusSkipped:
			icon = "⏭️"
		case models.StatusFailed, models.StatusError:
			icon = "❌"
		}

		detekt, violations := "-", "-"
		if co.Analysis != nil {
			detekt = "success"
			if !co.Analysis.Success {
				detekt = "failure"
			}
			if len(co.Analysis.Violations) > 0 {
				violations = strings.Join(uniqueRules(co.Analysis.Violations), ", ")
			}
		}

		exit := string(co.ExitCode)
		if exit == "" {
			exit = "-"
		}

		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			escapeCell(co.DisplayName), icon, exit, detekt, violations))
	}

	b.WriteString("\n")

	if digest.Failed > 0 || digest.Errors > 0 {
		b.WriteString("### Failed Case Details\n\n")
		for i := range outcome.CaseOutcomes {
			co := &outcome.CaseOutcomes[i]
			if co.Status != models.StatusFailed && co.Status != models.StatusError {
				continue
			}

			b.WriteString(fmt.Sprintf("#### %s\n\n", co.DisplayName))
			if co.ErrorMsg != "" {
				b.WriteString(fmt.Sprintf("- ⚠️ %s\n", co.ErrorMsg))
			}
			for _, c := range co.Checks {
				icon := "✅"
				if !c.Passed {
					icon = "❌"
				}
				b.WriteString(fmt.Sprintf("- %s **%s**: %s\n", icon, c.Name, c.Feedback))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(fmt.Sprintf("<sub>run %s</sub>\n", outcome.RunID))
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
