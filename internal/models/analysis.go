package models

import "slices"

// AnalysisResult is the structured view of one detekt run parsed out of the
// compiler output.
type AnalysisResult struct {
	Success bool `json:"success"`
	// Violations holds rule identifiers in order of appearance. A rule that is
	// reported twice appears twice.
	Violations []string `json:"violations"`
}

// HasRule reports whether rule was reported at least once.
func (r *AnalysisResult) HasRule(rule string) bool {
	return slices.Contains(r.Violations, rule)
}

// RuleCounts returns the number of violations per rule identifier.
func (r *AnalysisResult) RuleCounts() map[string]int {
	counts := make(map[string]int, len(r.Violations))
	for _, v := range r.Violations {
		counts[v]++
	}
	return counts
}
