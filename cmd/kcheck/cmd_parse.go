package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/detekt/kcheck/internal/assertion"
	"github.com/detekt/kcheck/internal/models"
	"github.com/spf13/cobra"
)

type parseOptions struct {
	json              bool
	exitCode          string
	expectCompilation bool
	expectSuccess     bool
	violations        int
	rules             []string
	forbiddenRules    []string
}

// parseReport is the --json form of a parsed log.
type parseReport struct {
	ExitCode   models.ExitCode        `json:"exit_code"`
	Analysis   *models.AnalysisResult `json:"analysis,omitempty"`
	ParseError string                 `json:"parse_error,omitempty"`
	Failure    *failureReport         `json:"failure,omitempty"`
}

type failureReport struct {
	Kind     assertion.FailureKind `json:"kind"`
	Message  string                `json:"message"`
	Expected any                   `json:"expected"`
	Actual   any                   `json:"actual"`
}

func newParseCommand() *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse the detekt run out of a captured compiler log",
		Long: `Parse a captured kotlinc log and print the detekt run it contains: the
reported status and the rule violations, in order of appearance.

Reads standard input when the file is "-" or omitted. The assertion flags
check the parsed result the same way suite checks do and exit with code 1 on
the first mismatch. A raw log carries no exit status, so --exit-code supplies
the one --expect-compilation is checked against.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return parseCommandE(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.json, "json", false, "Print the result as JSON")
	f.StringVar(&opts.exitCode, "exit-code", string(models.ExitCodeOK), "Compiler exit code of the log (OK, COMPILATION_ERROR, ... or numeric)")
	f.BoolVar(&opts.expectCompilation, "expect-compilation", true, "Assert that compilation succeeded (true) or failed (false)")
	f.BoolVar(&opts.expectSuccess, "expect-success", true, "Assert the detekt success status")
	f.IntVar(&opts.violations, "violations", 0, "Assert the total number of violations")
	f.StringSliceVar(&opts.rules, "rule", nil, "Assert that a rule raised a violation (can be repeated)")
	f.StringSliceVar(&opts.forbiddenRules, "no-rule", nil, "Assert that a rule raised no violation (can be repeated)")

	return cmd
}

func parseCommandE(cmd *cobra.Command, args []string, opts *parseOptions) error {
	raw, err := readLog(cmd, args)
	if err != nil {
		return err
	}

	exitCode, err := models.ParseExitCode(opts.exitCode)
	if err != nil {
		return err
	}

	result := &models.InvocationResult{ExitCode: exitCode, Output: raw}
	a := assertion.That(result)

	flags := cmd.Flags()
	if flags.Changed("expect-compilation") {
		a.PassCompilation(opts.expectCompilation)
	}
	if flags.Changed("expect-success") {
		a.PassDetekt(opts.expectSuccess)
	}
	if flags.Changed("violations") {
		a.WithViolations(opts.violations)
	}
	if len(opts.rules) > 0 {
		a.WithRuleViolation(opts.rules...)
	}
	if len(opts.forbiddenRules) > 0 {
		a.WithoutRuleViolation(opts.forbiddenRules...)
	}

	report := parseReport{ExitCode: exitCode}
	if analysis, err := a.Analysis(); err != nil {
		report.ParseError = err.Error()
	} else {
		report.Analysis = analysis
	}

	var failure *assertion.Failure
	if errors.As(a.Err(), &failure) {
		report.Failure = &failureReport{
			Kind:     failure.Kind,
			Message:  failure.Message,
			Expected: failure.Expected,
			Actual:   failure.Actual,
		}
	}

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printParseReport(out, &report, len(a.Block()) > 0)
	}

	if failure != nil {
		return &TestFailureError{Message: failure.Message}
	}
	return nil
}

func readLog(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading standard input: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading compiler log: %w", err)
	}
	return string(data), nil
}

func printParseReport(out io.Writer, report *parseReport, ran bool) {
	p := newProgressPrinter(out)

	fmt.Fprintf(out, "Exit code:   %s\n", report.ExitCode)

	switch {
	case report.Analysis != nil && report.Analysis.Success:
		fmt.Fprintf(out, "detekt:      %s\n", p.pass.Sprint("success"))
	case report.Analysis != nil:
		fmt.Fprintf(out, "detekt:      %s\n", p.fail.Sprint("failure"))
	case ran:
		fmt.Fprintf(out, "detekt:      %s (%s)\n", p.warn.Sprint("no status"), report.ParseError)
	default:
		fmt.Fprintf(out, "detekt:      %s\n", p.warn.Sprint("did not run"))
	}

	if report.Analysis != nil {
		fmt.Fprintf(out, "Violations:  %d\n", len(report.Analysis.Violations))
		for _, v := range report.Analysis.Violations {
			fmt.Fprintf(out, "  - %s\n", v)
		}
	}

	if report.Failure != nil {
		fmt.Fprintf(out, "\n%s %s\n", p.fail.Sprint("FAIL"), report.Failure.Message)
	}
}
