package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/detekt/kcheck/internal/models"
	"github.com/detekt/kcheck/internal/orchestration"
	"github.com/detekt/kcheck/internal/reporting"
	"github.com/detekt/kcheck/internal/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// progressPrinter renders runner progress events and the final summary.
// Colors are only used when out is a terminal.
type progressPrinter struct {
	out io.Writer

	// spin shows a spinner while a case compiles in simple mode. Only set it
	// for sequential runs on a terminal.
	spin     bool
	mu       sync.Mutex
	stopSpin func()

	pass *color.Color
	fail *color.Color
	warn *color.Color
	dim  *color.Color
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	p := &progressPrinter{
		out:  out,
		pass: color.New(color.FgGreen),
		fail: color.New(color.FgRed),
		warn: color.New(color.FgYellow),
		dim:  color.New(color.Faint),
	}

	if !isTerminal(out) {
		for _, c := range []*color.Color{p.pass, p.fail, p.warn, p.dim} {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *progressPrinter) verdict(status models.Status) string {
	switch status {
	case models.StatusPassed:
		return p.pass.Sprint("PASS")
	case models.StatusFailed:
		return p.fail.Sprint("FAIL")
	case models.StatusSkipped:
		return p.dim.Sprint("SKIP")
	default:
		return p.warn.Sprint("ERROR")
	}
}

func (p *progressPrinter) startSpinner(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopSpin != nil {
		p.stopSpin()
	}
	p.stopSpin = spinner.Start(p.out, message)
}

func (p *progressPrinter) stopSpinner() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopSpin != nil {
		p.stopSpin()
		p.stopSpin = nil
	}
}

func (p *progressPrinter) simple(event orchestration.ProgressEvent) {
	if event.EventType == orchestration.EventCaseStart {
		if p.spin {
			p.startSpinner(fmt.Sprintf("[%d/%d] %s", event.CaseNum, event.TotalCases, event.CaseName))
		}
		return
	}
	if event.EventType != orchestration.EventCheckResult && event.EventType != orchestration.EventCompilerOut {
		p.stopSpinner()
	}

	switch event.EventType {
	case orchestration.EventCaseComplete, orchestration.EventCaseSkipped:
		fmt.Fprintf(p.out, "%s [%d/%d] %s\n", p.verdict(event.Status), event.CaseNum, event.TotalCases, event.CaseName)
	case orchestration.EventCaseCached:
		fmt.Fprintf(p.out, "%s [%d/%d] %s %s\n", p.verdict(event.Status), event.CaseNum, event.TotalCases, event.CaseName, p.dim.Sprint("[cached]"))
	case orchestration.EventRunStopped:
		fmt.Fprintln(p.out, p.warn.Sprint("Stopping: fail_fast is set and a case did not pass"))
	}
}

func (p *progressPrinter) verbose(event orchestration.ProgressEvent) {
	switch event.EventType {
	case orchestration.EventRunStart:
		fmt.Fprintf(p.out, "Starting run with %d case(s)...\n\n", event.TotalCases)
	case orchestration.EventCaseStart:
		fmt.Fprintf(p.out, "[%d/%d] Running case: %s\n", event.CaseNum, event.TotalCases, event.CaseName)
	case orchestration.EventCompilerOut:
		fmt.Fprintf(p.out, "  [KOTLINC] exit code %v\n", event.Details["exit_code"])
		if output, ok := event.Details["output"].(string); ok && output != "" {
			for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
				fmt.Fprintf(p.out, "    %s\n", p.dim.Sprint(line))
			}
		}
	case orchestration.EventCheckResult:
		passed, _ := event.Details["passed"].(bool)
		icon := p.pass.Sprint("✓")
		if !passed {
			icon = p.fail.Sprint("✗")
		}
		fmt.Fprintf(p.out, "  [CHECK] %s %v (%v)", icon, event.Details["check"], event.Details["check_type"])
		if feedback, _ := event.Details["feedback"].(string); feedback != "" {
			fmt.Fprintf(p.out, ": %s", feedback)
		}
		fmt.Fprintln(p.out)
	case orchestration.EventCaseComplete, orchestration.EventCaseCached:
		duration := time.Duration(event.DurationMs) * time.Millisecond
		suffix := ""
		if event.EventType == orchestration.EventCaseCached {
			suffix = " " + p.dim.Sprint("[cached]")
		}
		fmt.Fprintf(p.out, "  %s %s (%v)%s\n", p.verdict(event.Status), event.CaseName, duration, suffix)
		if e, ok := event.Details["error"].(string); ok && e != "" {
			fmt.Fprintf(p.out, "  [ERROR] %s\n", e)
		}
		fmt.Fprintln(p.out)
	case orchestration.EventCaseSkipped:
		fmt.Fprintf(p.out, "[%d/%d] %s %s\n", event.CaseNum, event.TotalCases, p.verdict(event.Status), event.CaseName)
	case orchestration.EventRunStopped:
		fmt.Fprintln(p.out, p.warn.Sprint("Stopping: fail_fast is set and a case did not pass"))
	case orchestration.EventRunComplete:
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Fprintf(p.out, "Run completed in %v\n\n", duration)
	}
}

func (p *progressPrinter) summary(outcome *models.SuiteOutcome) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, strings.Repeat("=", 51))
	fmt.Fprintln(p.out, " KCHECK RESULTS")
	fmt.Fprintln(p.out, strings.Repeat("=", 51))
	fmt.Fprintln(p.out)

	d := outcome.Digest
	fmt.Fprintf(p.out, "Total Cases:    %d\n", d.TotalCases)
	fmt.Fprintf(p.out, "Succeeded:      %d\n", d.Succeeded)
	fmt.Fprintf(p.out, "Failed:         %d\n", d.Failed)
	fmt.Fprintf(p.out, "Errors:         %d\n", d.Errors)
	if d.Skipped > 0 {
		fmt.Fprintf(p.out, "Skipped:        %d\n", d.Skipped)
	}
	if d.Cached > 0 {
		fmt.Fprintf(p.out, "Cached:         %d\n", d.Cached)
	}
	fmt.Fprintf(p.out, "Success Rate:   %.1f%%\n", d.SuccessRate*100)
	fmt.Fprintf(p.out, "Duration:       %v\n", time.Duration(d.DurationMs)*time.Millisecond)
	fmt.Fprintln(p.out)

	fmt.Fprint(p.out, reporting.FormatCaseTable(outcome))
	fmt.Fprintln(p.out)

	if d.Failed == 0 && d.Errors == 0 {
		return
	}

	fmt.Fprintln(p.out, "Failed Cases:")
	for i := range outcome.CaseOutcomes {
		co := &outcome.CaseOutcomes[i]
		if co.Status != models.StatusFailed && co.Status != models.StatusError {
			continue
		}
		fmt.Fprintf(p.out, "  %s %s\n", p.verdict(co.Status), co.DisplayName)
		if co.ErrorMsg != "" {
			fmt.Fprintf(p.out, "    • %s\n", co.ErrorMsg)
		}
		for _, c := range co.FailedChecks() {
			fmt.Fprintf(p.out, "    • %s: %s\n", c.Name, c.Feedback)
		}
	}
	fmt.Fprintln(p.out)
}
