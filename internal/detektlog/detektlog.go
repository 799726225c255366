// Package detektlog extracts the detekt run embedded in kotlinc output and
// parses it into a [models.AnalysisResult].
//
// The detekt compiler plugin logs through the compiler's message collector, so
// its output is interleaved with ordinary compiler diagnostics:
//
//	w: some unrelated compiler warning
//	i: Running detekt on module 'main'
//		<ESC>[33mMagicNumber - [x] at /tmp/hello.kt:3:13
//	i: Success?: false
//
// Everything before the "Running detekt" line and after the last "Success?"
// line is dropped.
package detektlog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/detekt/kcheck/internal/models"
)

const (
	// StartMarker appears on the first line of a detekt run.
	StartMarker = "Running detekt"
	// StatusMarker appears on the line reporting the run status. The line
	// ends with "true" or "false".
	StatusMarker = "Success?"
	// ViolationPrefix starts every violation line: a tab followed by the
	// yellow color escape the plugin uses for findings.
	ViolationPrefix = "\t\x1b[33m"
)

// ErrMissingStatusLine is returned when a run block has no usable status
// line, which means the analysis never completed.
var ErrMissingStatusLine = errors.New("detekt status line not found")

// StatusLineError reports a status line whose trailing token isn't a boolean
// literal. It matches [ErrMissingStatusLine] with [errors.Is].
type StatusLineError struct {
	Line  string
	Token string
}

func (e *StatusLineError) Error() string {
	return fmt.Sprintf("detekt status line %q ends with %q, expected \"true\" or \"false\"", e.Line, e.Token)
}

func (e *StatusLineError) Is(target error) bool {
	return target == ErrMissingStatusLine
}

// ExtractRunBlock returns the lines of raw belonging to the detekt run. The
// block starts at the first line containing [StartMarker] and ends at the last
// line containing [StatusMarker]. If there is no status line the block runs to
// the end of the output; if there is no start marker the block is empty.
func ExtractRunBlock(raw string) []string {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	start := -1
	for i, l := range lines {
		if strings.Contains(l, StartMarker) {
			start = i
			break
		}
	}
	if start < 0 {
		return []string{}
	}
	lines = lines[start:]

	end := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], StatusMarker) {
			end = i + 1
			break
		}
	}

	return lines[:end]
}

// Status locates the first status line in block and parses its trailing
// token. Only the exact literals "true" and "false" are accepted.
func Status(block []string) (bool, error) {
	for _, l := range block {
		if !strings.Contains(l, StatusMarker) {
			continue
		}

		fields := strings.Fields(l)
		token := fields[len(fields)-1]
		switch token {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return false, &StatusLineError{Line: l, Token: token}
		}
	}

	return false, ErrMissingStatusLine
}

// Violations returns the rule identifier of every violation line in block,
// in order and without deduplication. A violation line starts with a tab; the
// color escape after it is optional.
func Violations(block []string) []string {
	violations := []string{}
	for _, l := range block {
		if !strings.HasPrefix(l, "\t") {
			continue
		}

		rest := strings.TrimPrefix(l, ViolationPrefix)
		if rest == l {
			rest = l[1:]
		}

		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		violations = append(violations, fields[0])
	}
	return violations
}

// Parse builds an [models.AnalysisResult] from a run block. It fails with an
// error matching [ErrMissingStatusLine] when the status can't be determined.
func Parse(block []string) (*models.AnalysisResult, error) {
	success, err := Status(block)
	if err != nil {
		return nil, fmt.Errorf("parsing detekt run: %w", err)
	}

	return &models.AnalysisResult{
		Success:    success,
		Violations: Violations(block),
	}, nil
}

// ParseOutput runs [ExtractRunBlock] and [Parse] over raw compiler output.
func ParseOutput(raw string) (*models.AnalysisResult, error) {
	return Parse(ExtractRunBlock(raw))
}
