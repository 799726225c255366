package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/detekt/kcheck/internal/models"
	"github.com/go-viper/mapstructure/v2"
)

// Check is the interface for all suite checks
type Check interface {
	// Name returns the check name used in results
	Name() string

	// Kind returns the check type
	Kind() models.CheckKind

	// Run evaluates the check against one invocation
	Run(ctx context.Context, checkContext *Context) (*models.CheckResult, error)
}

// Context carries what a check needs to evaluate one case
type Context struct {
	CaseID     string
	Invocation *models.InvocationResult
}

// Create creates a check from its suite configuration. When name is empty the
// kind is used.
func Create(kind models.CheckKind, name string, params map[string]any) (Check, error) {
	if name == "" {
		name = string(kind)
	}

	switch kind {
	case models.CheckKindCompilation, models.CheckKindDetektStatus:
		var v struct {
			ExpectSuccess *bool `mapstructure:"expect_success"`
		}
		if err := decode(params, &v); err != nil {
			return nil, fmt.Errorf("check '%s': %w", name, err)
		}

		expect := true
		if v.ExpectSuccess != nil {
			expect = *v.ExpectSuccess
		}

		if kind == models.CheckKindCompilation {
			return NewCompilationCheck(name, expect), nil
		}
		return NewDetektStatusCheck(name, expect), nil
	case models.CheckKindViolationCount:
		var v struct {
			Count *int `mapstructure:"count"`
		}
		if err := decode(params, &v); err != nil {
			return nil, fmt.Errorf("check '%s': %w", name, err)
		}
		if v.Count == nil {
			return nil, fmt.Errorf("check '%s' must have a 'count'", name)
		}
		if *v.Count < 0 {
			return nil, fmt.Errorf("check '%s' has a negative count %d", name, *v.Count)
		}
		return NewViolationCountCheck(name, *v.Count), nil
	case models.CheckKindNoViolations:
		return NewNoViolationsCheck(name), nil
	case models.CheckKindRuleViolation, models.CheckKindForbiddenRules:
		var v struct {
			Rules []string `mapstructure:"rules"`
		}
		if err := decode(params, &v); err != nil {
			return nil, fmt.Errorf("check '%s': %w", name, err)
		}
		if len(v.Rules) == 0 {
			return nil, fmt.Errorf("check '%s' must list at least one rule", name)
		}

		if kind == models.CheckKindRuleViolation {
			return NewRuleViolationCheck(name, v.Rules), nil
		}
		return NewForbiddenRulesCheck(name, v.Rules), nil
	case models.CheckKindKeyword:
		args := KeywordCheckArgs{Name: name}
		if err := decode(params, &args); err != nil {
			return nil, fmt.Errorf("check '%s': %w", name, err)
		}
		kc, err := NewKeywordCheck(args)
		if err != nil {
			return nil, err
		}
		return kc, nil
	default:
		return nil, fmt.Errorf("'%s' is not a valid check type", kind)
	}
}

// CreateAll creates checks for every config, in order.
func CreateAll(configs []models.CheckConfig) ([]Check, error) {
	checks := make([]Check, 0, len(configs))
	for _, cfg := range configs {
		c, err := Create(cfg.Kind, cfg.Identifier, cfg.Parameters)
		if err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, nil
}

func decode(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(params)
}

// measureTime is a helper to measure check duration
func measureTime(fn func() (*models.CheckResult, error)) (*models.CheckResult, error) {
	start := time.Now()
	result, err := fn()

	if result != nil {
		result.DurationMs = time.Since(start).Milliseconds()
	}

	return result, err
}
