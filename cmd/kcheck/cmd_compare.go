package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/detekt/kcheck/internal/models"
	"github.com/detekt/kcheck/internal/reporting"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

type compareOptions struct {
	format           string
	failOnRegression bool
}

func newCompareCommand() *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare <before.json> <after.json> [more.json ...]",
		Short: "Compare saved suite results",
		Long: `Compare results saved with "kcheck run --output" side by side.

Shows the success rate, per-case status and violation counts, and per-rule
violation totals of every run. Deltas are computed between the first and the
last file. A case regresses when it passed in the first run but not in the
last.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compareCommandE(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format: table or json")
	cmd.Flags().BoolVar(&opts.failOnRegression, "fail-on-regression", false, "Exit with code 1 when a case regressed")

	return cmd
}

func compareCommandE(cmd *cobra.Command, args []string, opts *compareOptions) error {
	if opts.format != "table" && opts.format != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", opts.format)
	}

	outcomes := make([]*models.SuiteOutcome, 0, len(args))
	for _, path := range args {
		o, err := reporting.LoadOutcome(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		outcomes = append(outcomes, o)
	}

	report := reporting.Compare(args, outcomes)

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal comparison report: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		printComparisonTable(out, report)
	}

	if opts.failOnRegression && report.Regressions > 0 {
		return &TestFailureError{Message: fmt.Sprintf("%d case(s) regressed", report.Regressions)}
	}
	return nil
}

const caseColumnWidth = 25

func printComparisonTable(out io.Writer, r *reporting.Comparison) {
	rule := strings.Repeat("=", 70)
	thin := strings.Repeat("-", 70)

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, " COMPARISON REPORT")
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)

	for i, f := range r.Files {
		fmt.Fprintf(out, "  [%d] %s  (compiler: %s)\n", i+1, f, r.Compilers[i])
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, thin)
	fmt.Fprintln(out, " AGGREGATE")
	fmt.Fprintln(out, thin)

	fmt.Fprintf(out, "  %-20s", "Metric")
	for i := range r.Files {
		fmt.Fprintf(out, "  %-10s", fmt.Sprintf("[%d]", i+1))
	}
	fmt.Fprintln(out, "  Delta")

	fmt.Fprintf(out, "  %-20s", "Success Rate")
	for _, s := range r.SuccessRates {
		fmt.Fprintf(out, "  %-10s", fmt.Sprintf("%.1f%%", s*100))
	}
	fmt.Fprintf(out, "  %+.1f%%\n", r.SuccessRateDelta*100)

	fmt.Fprintf(out, "  %-20s", "Duration (ms)")
	for _, d := range r.DurationsMs {
		fmt.Fprintf(out, "  %-10d", d)
	}
	fmt.Fprintf(out, "  %+d\n", r.DurationDeltaMs)
	fmt.Fprintln(out)

	fmt.Fprintln(out, thin)
	fmt.Fprintln(out, " CASES")
	fmt.Fprintln(out, thin)

	fmt.Fprintf(out, "  %s", runewidth.FillRight("Case", caseColumnWidth))
	for i := range r.Files {
		fmt.Fprintf(out, "  %-10s", fmt.Sprintf("[%d]", i+1))
	}
	fmt.Fprintln(out, "  Violations")

	for _, c := range r.Cases {
		name := runewidth.Truncate(c.DisplayName, caseColumnWidth, "...")
		fmt.Fprintf(out, "  %s", runewidth.FillRight(name, caseColumnWidth))
		for _, s := range c.Statuses {
			fmt.Fprintf(out, "  %-10s", s)
		}

		marker := ""
		switch {
		case c.Regressed:
			marker = "  ↓ regressed"
		case c.Fixed:
			marker = "  ↑ fixed"
		}
		fmt.Fprintf(out, "  %s%s\n", formatViolationCounts(c.Violations), marker)
	}
	fmt.Fprintln(out)

	if len(r.Rules) > 0 {
		fmt.Fprintln(out, thin)
		fmt.Fprintln(out, " RULES")
		fmt.Fprintln(out, thin)
		for _, rc := range r.Rules {
			counts := make([]string, len(rc.Counts))
			for i, n := range rc.Counts {
				counts[i] = fmt.Sprint(n)
			}
			fmt.Fprintf(out, "  %s  %s  (%+d)\n", runewidth.FillRight(rc.Rule, caseColumnWidth), strings.Join(counts, " → "), rc.Delta)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Regressions: %d  Fixes: %d\n", r.Regressions, r.Fixes)
}

func formatViolationCounts(counts []int) string {
	parts := make([]string, len(counts))
	for i, n := range counts {
		if n < 0 {
			parts[i] = "-"
		} else {
			parts[i] = fmt.Sprint(n)
		}
	}
	return strings.Join(parts, " → ")
}
