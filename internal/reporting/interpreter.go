package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/detekt/kcheck/internal/models"
)

// InterpretPassRate returns a human-readable explanation of a pass rate (0–1).
func InterpretPassRate(rate float64) string {
	pct := rate * 100
	switch {
	case pct >= 100:
		return fmt.Sprintf("All cases passed (%.0f%%)", pct)
	case pct >= 80:
		return fmt.Sprintf("Most cases passed (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("About half the cases passed (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Few cases passed (%.0f%%)", pct)
	}
}

// InterpretCase explains in one sentence what the compiler and detekt did for
// a case.
func InterpretCase(co *models.CaseOutcome) string {
	switch co.Status {
	case models.StatusSkipped:
		return "Not run because an earlier case failed and fail_fast is set."
	case models.StatusError:
		return fmt.Sprintf("The case could not be evaluated: %s", co.ErrorMsg)
	}

	var compile string
	switch co.ExitCode {
	case models.ExitCodeOK:
		compile = "Compiled cleanly"
	case models.ExitCodeCompilationError:
		compile = "Failed to compile"
	default:
		compile = fmt.Sprintf("kotlinc stopped with %s", co.ExitCode)
	}

	if co.Analysis == nil {
		return compile + "; detekt never reported a status."
	}

	verdict := "detekt succeeded"
	if !co.Analysis.Success {
		verdict = "detekt failed"
	}

	switch n := len(co.Analysis.Violations); n {
	case 0:
		return fmt.Sprintf("%s; %s with no violations.", compile, verdict)
	case 1:
		return fmt.Sprintf("%s; %s with 1 violation (%s).", compile, verdict, co.Analysis.Violations[0])
	default:
		return fmt.Sprintf("%s; %s with %d violations (%s).", compile, verdict, n, strings.Join(uniqueRules(co.Analysis.Violations), ", "))
	}
}

// FormatSummaryReport produces a full plain-language report from a SuiteOutcome.
func FormatSummaryReport(outcome *models.SuiteOutcome) string {
	var b strings.Builder

	d := outcome.Digest
	duration := time.Duration(d.DurationMs) * time.Millisecond

	b.WriteString("=== Interpretation ===\n\n")

	fmt.Fprintf(&b, "Pass Rate:     %s\n", InterpretPassRate(d.SuccessRate))
	fmt.Fprintf(&b, "Duration:      %v\n", duration)

	if d.TotalCases > 0 {
		fmt.Fprintf(&b, "Cases:         %d passed, %d failed, %d errors, %d skipped out of %d total\n",
			d.Succeeded, d.Failed, d.Errors, d.Skipped, d.TotalCases)
	}
	if d.Cached > 0 {
		fmt.Fprintf(&b, "Cache:         %d case(s) served from cache\n", d.Cached)
	}
	if len(d.TopRules) > 0 {
		fmt.Fprintf(&b, "Rules hit:     %s\n", formatRuleCounts(d.TopRules))
	}

	if len(outcome.CaseOutcomes) > 0 {
		b.WriteString("\nPer-Case Interpretation:\n")
		for i := range outcome.CaseOutcomes {
			co := &outcome.CaseOutcomes[i]
			fmt.Fprintf(&b, "  %s %s: %s\n", statusIcon(co.Status), co.DisplayName, co.Status)
			fmt.Fprintf(&b, "    %s\n", InterpretCase(co))
			for _, c := range co.FailedChecks() {
				fmt.Fprintf(&b, "    - %s: %s\n", c.Name, c.Feedback)
			}
		}
	}

	return b.String()
}

func statusIcon(s models.Status) string {
	switch s {
	case models.StatusPassed:
		return "✓"
	case models.StatusSkipped:
		return "-"
	default:
		return "✗"
	}
}

func uniqueRules(violations []string) []string {
	seen := make(map[string]bool, len(violations))
	var out []string
	for _, v := range violations {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
