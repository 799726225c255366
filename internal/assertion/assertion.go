// Package assertion provides chainable assertions over a compiler invocation
// that ran the detekt plugin.
//
//	assertion.For(t, result).
//		PassCompilation().
//		PassDetekt(false).
//		WithViolations(1).
//		WithRuleViolation("MagicNumber")
//
// Every method returns the same *CompilationAssert so calls can be chained.
// The first failing call stops the chain: [For] fails the test immediately,
// [That] records the failure and turns the remaining calls into no-ops.
package assertion

import (
	"errors"
	"fmt"
	"slices"

	"github.com/detekt/kcheck/internal/detektlog"
	"github.com/detekt/kcheck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CompilationAssert wraps one [models.InvocationResult] together with the
// detekt run extracted from its output. It never modifies either.
type CompilationAssert struct {
	result     *models.InvocationResult
	block      []string
	violations []string

	onFailure func(*Failure)
	failure   *Failure
}

// That returns a CompilationAssert that collects the first failure instead of
// reporting it. Check [CompilationAssert.Err] at the end of the chain.
func That(result *models.InvocationResult) *CompilationAssert {
	block := detektlog.ExtractRunBlock(result.Output)
	return &CompilationAssert{
		result:     result,
		block:      block,
		violations: detektlog.Violations(block),
	}
}

// For returns a CompilationAssert that reports the first mismatch on t and
// stops the test.
func For(t require.TestingT, result *models.InvocationResult) *CompilationAssert {
	a := That(result)
	a.onFailure = func(f *Failure) {
		if h, ok := t.(interface{ Helper() }); ok {
			h.Helper()
		}
		assert.Fail(t, f.Message, "%s\nexpected: %v\nactual:   %v", f.Kind, f.Expected, f.Actual)
		t.FailNow()
	}
	return a
}

// Result returns the wrapped invocation result.
func (a *CompilationAssert) Result() *models.InvocationResult { return a.result }

// Block returns the lines of the detekt run. It is empty when the output
// never mentioned a detekt run.
func (a *CompilationAssert) Block() []string { return a.block }

// Violations returns the rule identifiers reported by the detekt run.
func (a *CompilationAssert) Violations() []string { return a.violations }

// Analysis parses the stored run block into an [models.AnalysisResult].
func (a *CompilationAssert) Analysis() (*models.AnalysisResult, error) {
	return detektlog.Parse(a.block)
}

// Err returns the first failure recorded on the chain, or nil.
func (a *CompilationAssert) Err() error {
	if a.failure == nil {
		return nil
	}
	return a.failure
}

// Failed reports whether any call on the chain has failed.
func (a *CompilationAssert) Failed() bool { return a.failure != nil }

// PassCompilation checks that kotlinc exited with OK, or with
// COMPILATION_ERROR when called with false.
func (a *CompilationAssert) PassCompilation(expectSuccess ...bool) *CompilationAssert {
	if a.failure != nil {
		return a
	}

	expected := models.ExitCodeCompilationError
	if expectation(expectSuccess) {
		expected = models.ExitCodeOK
	}

	if a.result.ExitCode != expected {
		a.fail(&Failure{
			Kind:     KindCompilationOutcomeMismatch,
			Actual:   a.result.ExitCode,
			Expected: expected,
			Message:  fmt.Sprintf("Expected compilation to finish with code %s but was %s", expected, a.result.ExitCode),
		})
	}
	return a
}

// PassDetekt checks the status reported by the detekt run. A run without a
// status line fails with [KindMissingStatusLine] regardless of the
// expectation.
func (a *CompilationAssert) PassDetekt(expectSuccess ...bool) *CompilationAssert {
	if a.failure != nil {
		return a
	}

	expected := expectation(expectSuccess)

	status, err := detektlog.Status(a.block)
	if err != nil {
		a.fail(missingStatus(err, expected, len(a.block) > 0))
		return a
	}

	if status != expected {
		a.fail(&Failure{
			Kind:     KindDetektStatusMismatch,
			Actual:   status,
			Expected: expected,
			Message:  fmt.Sprintf("Expected detekt to finish with success status: %t but was %t", expected, status),
		})
	}
	return a
}

// WithNoViolations is WithViolations(0).
func (a *CompilationAssert) WithNoViolations() *CompilationAssert {
	return a.WithViolations(0)
}

// WithViolations checks the total number of reported violations.
func (a *CompilationAssert) WithViolations(expected int) *CompilationAssert {
	if a.failure != nil {
		return a
	}

	if actual := len(a.violations); actual != expected {
		a.fail(&Failure{
			Kind:     KindViolationCountMismatch,
			Actual:   actual,
			Expected: expected,
			Message:  fmt.Sprintf("Expected detekt violations to be %d but was %d", expected, actual),
		})
	}
	return a
}

// WithRuleViolation checks that every named rule was reported at least once.
// Other reported rules don't matter.
func (a *CompilationAssert) WithRuleViolation(rules ...string) *CompilationAssert {
	if a.failure != nil {
		return a
	}

	var missing []string
	for _, r := range rules {
		if !slices.Contains(a.violations, r) {
			missing = append(missing, r)
		}
	}

	if len(missing) > 0 {
		a.fail(&Failure{
			Kind:     KindMissingExpectedViolation,
			Actual:   slices.Clone(a.violations),
			Expected: slices.Clone(rules),
			Missing:  missing,
			Message: fmt.Sprintf("Expected rules %v to raise a violation but not all were found. "+
				"Found violations are instead %v", rules, a.violations),
		})
	}
	return a
}

// WithoutRuleViolation checks that none of the named rules was reported.
func (a *CompilationAssert) WithoutRuleViolation(rules ...string) *CompilationAssert {
	if a.failure != nil {
		return a
	}

	var found []string
	for _, r := range rules {
		if slices.Contains(a.violations, r) {
			found = append(found, r)
		}
	}

	if len(found) > 0 {
		a.fail(&Failure{
			Kind:     KindUnexpectedViolation,
			Actual:   slices.Clone(a.violations),
			Expected: slices.Clone(rules),
			Missing:  found,
			Message:  fmt.Sprintf("Expected rules %v not to raise a violation but found %v", rules, found),
		})
	}
	return a
}

func (a *CompilationAssert) fail(f *Failure) {
	a.failure = f
	if a.onFailure != nil {
		a.onFailure(f)
	}
}

func expectation(opt []bool) bool {
	if len(opt) == 0 {
		return true
	}
	return opt[0]
}

func missingStatus(err error, expected bool, ran bool) *Failure {
	f := &Failure{
		Kind:     KindMissingStatusLine,
		Expected: expected,
		Cause:    err,
	}

	var statusErr *detektlog.StatusLineError
	switch {
	case errors.As(err, &statusErr):
		f.Actual = statusErr.Token
		f.Message = fmt.Sprintf("Expected detekt to finish with success status: %t but the status line ended with %q",
			expected, statusErr.Token)
	case ran:
		f.Message = fmt.Sprintf("Expected detekt to finish with success status: %t but the run reported no status", expected)
	default:
		f.Message = fmt.Sprintf("Expected detekt to finish with success status: %t but detekt never ran", expected)
	}
	return f
}
