package orchestration

import (
	"fmt"
	"path/filepath"

	"github.com/detekt/kcheck/internal/models"
)

// FilterCases returns the subset of cases whose name or id matches at least
// one of the given glob patterns, in suite order. An empty patterns slice
// returns all cases unchanged.
func FilterCases(cases []models.CaseSpec, patterns []string) ([]models.CaseSpec, error) {
	if len(patterns) == 0 {
		return cases, nil
	}

	var matched []models.CaseSpec
	for i := range cases {
		ok, err := matchesAny(&cases[i], patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, cases[i])
		}
	}
	return matched, nil
}

// matchesAny reports whether a case's name or id matches any pattern.
func matchesAny(c *models.CaseSpec, patterns []string) (bool, error) {
	for _, p := range patterns {
		nameMatch, err := filepath.Match(p, c.Name())
		if err != nil {
			return false, fmt.Errorf("invalid case filter pattern %q: %w", p, err)
		}
		if nameMatch {
			return true, nil
		}
		idMatch, err := filepath.Match(p, c.CaseID)
		if err != nil {
			return false, fmt.Errorf("invalid case filter pattern %q: %w", p, err)
		}
		if idMatch {
			return true, nil
		}
	}
	return false, nil
}
