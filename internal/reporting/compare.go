package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/detekt/kcheck/internal/models"
)

// StatusMissing marks a case that is absent from one of the compared runs.
const StatusMissing = "n/a"

// CaseComparison tracks one case across the compared runs.
type CaseComparison struct {
	CaseID      string   `json:"case_id"`
	DisplayName string   `json:"display_name"`
	Statuses    []string `json:"statuses"`
	// Violations is -1 where the case produced no detekt run.
	Violations     []int `json:"violations"`
	ViolationDelta int   `json:"violation_delta"`
	// Regressed is set when the case passed in the first run but not in the
	// last.
	Regressed bool `json:"regressed,omitempty"`
	Fixed     bool `json:"fixed,omitempty"`
}

// RuleComparison tracks the total count of one rule across the runs.
type RuleComparison struct {
	Rule   string `json:"rule"`
	Counts []int  `json:"counts"`
	Delta  int    `json:"delta"`
}

// Comparison is the result of comparing two or more suite runs. Deltas are
// always last minus first.
type Comparison struct {
	Files            []string         `json:"files"`
	RunIDs           []string         `json:"run_ids"`
	Compilers        []string         `json:"compilers"`
	SuccessRates     []float64        `json:"success_rates"`
	SuccessRateDelta float64          `json:"success_rate_delta"`
	TotalCases       []int            `json:"total_cases"`
	DurationsMs      []int64          `json:"durations_ms"`
	DurationDeltaMs  int64            `json:"duration_delta_ms"`
	Cases            []CaseComparison `json:"cases"`
	Rules            []RuleComparison `json:"rules"`
	Regressions      int              `json:"regressions"`
	Fixes            int              `json:"fixes"`
}

// LoadOutcome reads a suite outcome saved with "kcheck run --output".
func LoadOutcome(path string) (*models.SuiteOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var outcome models.SuiteOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &outcome, nil
}

// Compare builds a [Comparison] of outcomes, which must hold at least two
// runs. Cases are listed in order of first appearance.
func Compare(files []string, outcomes []*models.SuiteOutcome) *Comparison {
	c := &Comparison{Files: files}

	for _, o := range outcomes {
		c.RunIDs = append(c.RunIDs, o.RunID)
		c.Compilers = append(c.Compilers, o.Setup.Compiler)
		c.SuccessRates = append(c.SuccessRates, o.Digest.SuccessRate)
		c.TotalCases = append(c.TotalCases, o.Digest.TotalCases)
		c.DurationsMs = append(c.DurationsMs, o.Digest.DurationMs)
	}

	n := len(outcomes)
	c.SuccessRateDelta = c.SuccessRates[n-1] - c.SuccessRates[0]
	c.DurationDeltaMs = c.DurationsMs[n-1] - c.DurationsMs[0]

	type caseKey struct {
		id   string
		name string
	}
	var keys []caseKey
	seen := map[string]bool{}
	byID := make([]map[string]*models.CaseOutcome, n)
	for i, o := range outcomes {
		byID[i] = make(map[string]*models.CaseOutcome, len(o.CaseOutcomes))
		for j := range o.CaseOutcomes {
			co := &o.CaseOutcomes[j]
			byID[i][co.CaseID] = co
			if !seen[co.CaseID] {
				seen[co.CaseID] = true
				keys = append(keys, caseKey{id: co.CaseID, name: co.DisplayName})
			}
		}
	}

	for _, k := range keys {
		cc := CaseComparison{CaseID: k.id, DisplayName: k.name}
		for i := range outcomes {
			co, ok := byID[i][k.id]
			switch {
			case !ok:
				cc.Statuses = append(cc.Statuses, StatusMissing)
				cc.Violations = append(cc.Violations, -1)
			case co.Analysis == nil:
				cc.Statuses = append(cc.Statuses, string(co.Status))
				cc.Violations = append(cc.Violations, -1)
			default:
				cc.Statuses = append(cc.Statuses, string(co.Status))
				cc.Violations = append(cc.Violations, len(co.Analysis.Violations))
			}
		}

		first, last := cc.Violations[0], cc.Violations[n-1]
		if first >= 0 && last >= 0 {
			cc.ViolationDelta = last - first
		}

		passedFirst := cc.Statuses[0] == string(models.StatusPassed)
		passedLast := cc.Statuses[n-1] == string(models.StatusPassed)
		if passedFirst && !passedLast && cc.Statuses[n-1] != string(models.StatusSkipped) {
			cc.Regressed = true
			c.Regressions++
		}
		if !passedFirst && passedLast && cc.Statuses[0] != StatusMissing {
			cc.Fixed = true
			c.Fixes++
		}

		c.Cases = append(c.Cases, cc)
	}

	rules := map[string][]int{}
	for i, o := range outcomes {
		for rule, count := range o.Digest.TopRules {
			if rules[rule] == nil {
				rules[rule] = make([]int, n)
			}
			rules[rule][i] = count
		}
	}
	for rule, counts := range rules {
		c.Rules = append(c.Rules, RuleComparison{Rule: rule, Counts: counts, Delta: counts[n-1] - counts[0]})
	}
	sort.Slice(c.Rules, func(i, j int) bool {
		return c.Rules[i].Rule < c.Rules[j].Rule
	})

	return c
}
