package models

import (
	"time"
)

// Status represents the outcome status of a case or run.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// CheckKind identifies the type of check (e.g. compilation, rule_violation).
type CheckKind string

const (
	CheckKindCompilation    CheckKind = "compilation"
	CheckKindDetektStatus   CheckKind = "detekt_status"
	CheckKindViolationCount CheckKind = "violation_count"
	CheckKindNoViolations   CheckKind = "no_violations"
	CheckKindRuleViolation  CheckKind = "rule_violation"
	CheckKindForbiddenRules CheckKind = "forbidden_rules"
	CheckKindKeyword        CheckKind = "keyword"
)

// SuiteOutcome represents the complete result of running one suite
type SuiteOutcome struct {
	RunID        string         `json:"run_id"`
	SuiteName    string         `json:"suite_name"`
	Timestamp    time.Time      `json:"timestamp"`
	Setup        OutcomeSetup   `json:"config"`
	Digest       OutcomeDigest  `json:"summary"`
	CaseOutcomes []CaseOutcome  `json:"cases"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type OutcomeSetup struct {
	Compiler   string `json:"compiler"`
	PluginJar  string `json:"plugin_jar,omitempty"`
	TimeoutSec int    `json:"timeout_sec"`
	Parallel   bool   `json:"parallel"`
	Workers    int    `json:"workers,omitempty"`
}

type OutcomeDigest struct {
	TotalCases  int     `json:"total_cases"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	Errors      int     `json:"errors"`
	Skipped     int     `json:"skipped"`
	Cached      int     `json:"cached"`
	SuccessRate float64 `json:"success_rate"`
	DurationMs  int64   `json:"duration_ms"`
	// TopRules counts violations per rule across every case that produced a
	// detekt run.
	TopRules map[string]int `json:"top_rules,omitempty"`
}

// CaseOutcome represents the result of one suite case
type CaseOutcome struct {
	CaseID      string   `json:"case_id"`
	DisplayName string   `json:"display_name"`
	Tags        []string `json:"tags,omitempty"`
	// Status contains the overall status of the case.
	// NOTE: if Status == [StatusError], then [ErrorMsg] will be set to the
	// message from the error.
	Status     Status            `json:"status"`
	DurationMs int64             `json:"duration_ms"`
	ExitCode   ExitCode          `json:"exit_code,omitempty"`
	Analysis   *AnalysisResult   `json:"analysis,omitempty"`
	ParseError string            `json:"parse_error,omitempty"`
	Checks     []CheckResult     `json:"checks"`
	Output     string            `json:"output,omitempty"`
	ErrorMsg   string            `json:"error_msg,omitempty"`
	Cached     bool              `json:"cached,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type CheckResult struct {
	Name       string         `json:"name"`
	Kind       CheckKind      `json:"kind"`
	Passed     bool           `json:"passed"`
	Feedback   string         `json:"feedback"`
	Details    map[string]any `json:"details,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// AllChecksPassed reports whether every check in the case passed.
func (c *CaseOutcome) AllChecksPassed() bool {
	for _, ch := range c.Checks {
		if !ch.Passed {
			return false
		}
	}
	return true
}

// FailedChecks returns the checks that did not pass, in declaration order.
func (c *CaseOutcome) FailedChecks() []CheckResult {
	var failed []CheckResult
	for _, ch := range c.Checks {
		if !ch.Passed {
			failed = append(failed, ch)
		}
	}
	return failed
}

// ComputeDigest aggregates case outcomes into an [OutcomeDigest].
func ComputeDigest(cases []CaseOutcome, duration time.Duration) OutcomeDigest {
	d := OutcomeDigest{
		TotalCases: len(cases),
		DurationMs: duration.Milliseconds(),
	}

	for _, c := range cases {
		switch c.Status {
		case StatusPassed:
			d.Succeeded++
		case StatusFailed:
			d.Failed++
		case StatusError:
			d.Errors++
		case StatusSkipped:
			d.Skipped++
		}
		if c.Cached {
			d.Cached++
		}
		if c.Analysis != nil {
			for rule, n := range c.Analysis.RuleCounts() {
				if d.TopRules == nil {
					d.TopRules = map[string]int{}
				}
				d.TopRules[rule] += n
			}
		}
	}

	if ran := d.TotalCases - d.Skipped; ran > 0 {
		d.SuccessRate = float64(d.Succeeded) / float64(ran)
	}

	return d
}
