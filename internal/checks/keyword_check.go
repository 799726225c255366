package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/detekt/kcheck/internal/models"
)

// KeywordCheckArgs holds the arguments for creating a keyword check.
type KeywordCheckArgs struct {
	// Name is the identifier for this check, used in results and error messages.
	Name string `mapstructure:"-"`
	// MustContain lists keywords that must appear in the compiler output (case-insensitive).
	MustContain []string `mapstructure:"must_contain"`
	// MustNotContain lists keywords that must NOT appear in the compiler output (case-insensitive).
	MustNotContain []string `mapstructure:"must_not_contain"`
}

// keywordCheck validates the raw compiler output, including lines outside the
// detekt run, by keyword presence or absence.
type keywordCheck struct {
	name           string
	mustContain    []string
	mustNotContain []string
}

// NewKeywordCheck creates a [keywordCheck] that checks for keyword presence/absence
// in the compiler output using case-insensitive matching.
func NewKeywordCheck(args KeywordCheckArgs) (*keywordCheck, error) {
	if len(args.MustContain) == 0 && len(args.MustNotContain) == 0 {
		return nil, fmt.Errorf("keyword check '%s' needs 'must_contain' or 'must_not_contain'", args.Name)
	}

	return &keywordCheck{
		name:           args.Name,
		mustContain:    args.MustContain,
		mustNotContain: args.MustNotContain,
	}, nil
}

func (kc *keywordCheck) Name() string           { return kc.name }
func (kc *keywordCheck) Kind() models.CheckKind { return models.CheckKindKeyword }

func (kc *keywordCheck) Run(ctx context.Context, checkContext *Context) (*models.CheckResult, error) {
	return measureTime(func() (*models.CheckResult, error) {
		if checkContext.Invocation == nil {
			return nil, fmt.Errorf("check '%s' has no invocation to inspect", kc.name)
		}

		var failures []string
		outputLower := strings.ToLower(checkContext.Invocation.Output)

		for _, keyword := range kc.mustContain {
			if !strings.Contains(outputLower, strings.ToLower(keyword)) {
				failures = append(failures, fmt.Sprintf("Missing expected keyword: %s", keyword))
			}
		}

		for _, keyword := range kc.mustNotContain {
			if strings.Contains(outputLower, strings.ToLower(keyword)) {
				failures = append(failures, fmt.Sprintf("Found forbidden keyword: %s", keyword))
			}
		}

		feedback := "All keyword checks passed"
		if len(failures) > 0 {
			feedback = strings.Join(failures, "; ")
		}

		return &models.CheckResult{
			Name:     kc.name,
			Kind:     models.CheckKindKeyword,
			Passed:   len(failures) == 0,
			Feedback: feedback,
			Details: map[string]any{
				"must_contain":     kc.mustContain,
				"must_not_contain": kc.mustNotContain,
				"failures":         failures,
			},
		}, nil
	})
}
