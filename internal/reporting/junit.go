package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/detekt/kcheck/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one kcheck run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one suite case.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure represents a check failure.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents an unexpected error while running a case.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a case as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a SuiteOutcome to JUnit XML format.
func ConvertToJUnit(outcome *models.SuiteOutcome) *JUnitTestSuites {
	durationSec := float64(outcome.Digest.DurationMs) / 1000.0

	suite := JUnitTestSuite{
		Name:      outcome.SuiteName,
		Tests:     outcome.Digest.TotalCases,
		Failures:  outcome.Digest.Failed,
		Errors:    outcome.Digest.Errors,
		Skipped:   outcome.Digest.Skipped,
		Time:      durationSec,
		Timestamp: outcome.Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "run_id", Value: outcome.RunID},
			{Name: "compiler", Value: outcome.Setup.Compiler},
			{Name: "success_rate", Value: fmt.Sprintf("%.4f", outcome.Digest.SuccessRate)},
		},
	}
	if outcome.Setup.PluginJar != "" {
		suite.Properties = append(suite.Properties, JUnitProperty{Name: "plugin_jar", Value: outcome.Setup.PluginJar})
	}

	for i := range outcome.CaseOutcomes {
		suite.TestCases = append(suite.TestCases, convertCaseOutcome(outcome.SuiteName, &outcome.CaseOutcomes[i]))
	}

	return &JUnitTestSuites{
		Tests:      outcome.Digest.TotalCases,
		Failures:   outcome.Digest.Failed,
		Errors:     outcome.Digest.Errors,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertCaseOutcome(suiteName string, co *models.CaseOutcome) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      co.DisplayName,
		Classname: suiteName,
		Time:      float64(co.DurationMs) / 1000.0,
	}

	switch co.Status {
	case models.StatusFailed:
		tc.Failure = buildFailure(co)
		tc.SystemOut = co.Output
	case models.StatusError:
		tc.Error = buildError(co)
		tc.SystemOut = co.Output
	case models.StatusSkipped:
		tc.Skipped = &JUnitSkipped{Message: "skipped after an earlier case failed (fail_fast)"}
	}

	return tc
}

func buildFailure(co *models.CaseOutcome) *JUnitFailure {
	failed := co.FailedChecks()

	msg := fmt.Sprintf("%s: %d check(s) failed", co.DisplayName, len(failed))
	if len(failed) == 1 {
		msg = failed[0].Feedback
	}

	return &JUnitFailure{
		Message: msg,
		Type:    "CheckFailure",
		Body:    formatFailedChecks(failed),
	}
}

func buildError(co *models.CaseOutcome) *JUnitError {
	msg := co.ErrorMsg
	if msg == "" {
		msg = "execution error"
	}

	return &JUnitError{
		Message: msg,
		Type:    "ExecutionError",
	}
}

func formatFailedChecks(failed []models.CheckResult) string {
	var b strings.Builder
	for _, c := range failed {
		fmt.Fprintf(&b, "[FAIL] %s (%s): %s\n", c.Name, c.Kind, c.Feedback)
	}
	return b.String()
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(outcome *models.SuiteOutcome, path string) error {
	suites := ConvertToJUnit(outcome)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
