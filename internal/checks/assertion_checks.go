package checks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/detekt/kcheck/internal/assertion"
	"github.com/detekt/kcheck/internal/models"
)

// assertionCheck evaluates one assertion from the [assertion] package and
// turns its failure into a check result.
type assertionCheck struct {
	name    string
	kind    models.CheckKind
	details map[string]any
	apply   func(*assertion.CompilationAssert) *assertion.CompilationAssert
	passMsg string

	// needsRun marks checks that also pass when the output has no detekt
	// run at all, e.g. because the plugin was never loaded.
	needsRun bool
}

const noRunNote = " (warning: no detekt run found in the compiler output)"

// NewCompilationCheck checks the compiler exit code: OK when expectSuccess,
// COMPILATION_ERROR otherwise.
func NewCompilationCheck(name string, expectSuccess bool) Check {
	return &assertionCheck{
		name:    name,
		kind:    models.CheckKindCompilation,
		details: map[string]any{"expect_success": expectSuccess},
		apply: func(a *assertion.CompilationAssert) *assertion.CompilationAssert {
			return a.PassCompilation(expectSuccess)
		},
		passMsg: "Compilation finished as expected",
	}
}

// NewDetektStatusCheck checks the status reported by the detekt run.
func NewDetektStatusCheck(name string, expectSuccess bool) Check {
	return &assertionCheck{
		name:    name,
		kind:    models.CheckKindDetektStatus,
		details: map[string]any{"expect_success": expectSuccess},
		apply: func(a *assertion.CompilationAssert) *assertion.CompilationAssert {
			return a.PassDetekt(expectSuccess)
		},
		passMsg: fmt.Sprintf("detekt reported success status %t", expectSuccess),
	}
}

// NewViolationCountCheck checks the total number of violations.
func NewViolationCountCheck(name string, count int) Check {
	return &assertionCheck{
		name:    name,
		kind:    models.CheckKindViolationCount,
		details: map[string]any{"count": count},
		apply: func(a *assertion.CompilationAssert) *assertion.CompilationAssert {
			return a.WithViolations(count)
		},
		passMsg:  fmt.Sprintf("detekt reported %d violation(s)", count),
		needsRun: true,
	}
}

// NewNoViolationsCheck checks that detekt reported nothing.
func NewNoViolationsCheck(name string) Check {
	return &assertionCheck{
		name: name,
		kind: models.CheckKindNoViolations,
		apply: func(a *assertion.CompilationAssert) *assertion.CompilationAssert {
			return a.WithNoViolations()
		},
		passMsg:  "detekt reported no violations",
		needsRun: true,
	}
}

// NewRuleViolationCheck checks that every rule was reported at least once.
func NewRuleViolationCheck(name string, rules []string) Check {
	return &assertionCheck{
		name:    name,
		kind:    models.CheckKindRuleViolation,
		details: map[string]any{"rules": rules},
		apply: func(a *assertion.CompilationAssert) *assertion.CompilationAssert {
			return a.WithRuleViolation(rules...)
		},
		passMsg: "All expected rules raised a violation",
	}
}

// NewForbiddenRulesCheck checks that none of the rules was reported.
func NewForbiddenRulesCheck(name string, rules []string) Check {
	return &assertionCheck{
		name:    name,
		kind:    models.CheckKindForbiddenRules,
		details: map[string]any{"rules": rules},
		apply: func(a *assertion.CompilationAssert) *assertion.CompilationAssert {
			return a.WithoutRuleViolation(rules...)
		},
		passMsg:  "No forbidden rule raised a violation",
		needsRun: true,
	}
}

func (c *assertionCheck) Name() string           { return c.name }
func (c *assertionCheck) Kind() models.CheckKind { return c.kind }

func (c *assertionCheck) Run(ctx context.Context, checkContext *Context) (*models.CheckResult, error) {
	return measureTime(func() (*models.CheckResult, error) {
		if checkContext.Invocation == nil {
			return nil, fmt.Errorf("check '%s' has no invocation to inspect", c.name)
		}

		details := make(map[string]any, len(c.details)+3)
		for k, v := range c.details {
			details[k] = v
		}

		a := assertion.That(checkContext.Invocation)
		ran := len(a.Block()) > 0
		details["detekt_ran"] = ran

		err := c.apply(a).Err()
		if err == nil {
			feedback := c.passMsg
			if c.needsRun && !ran {
				feedback += noRunNote
				slog.Warn("check passed without a detekt run", "check", c.name, "case", checkContext.CaseID)
			}
			return &models.CheckResult{
				Name:     c.name,
				Kind:     c.kind,
				Passed:   true,
				Feedback: feedback,
				Details:  details,
			}, nil
		}

		var failure *assertion.Failure
		if !errors.As(err, &failure) {
			return nil, err
		}

		details["failure"] = string(failure.Kind)
		details["actual"] = failure.Actual
		details["expected"] = failure.Expected
		if len(failure.Missing) > 0 {
			details["rules_at_fault"] = failure.Missing
		}

		return &models.CheckResult{
			Name:     c.name,
			Kind:     c.kind,
			Passed:   false,
			Feedback: failure.Message,
			Details:  details,
		}, nil
	})
}
