// Package transcript writes one JSON file per case with the compiled sources,
// the raw compiler output and the detekt run extracted from it.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/detekt/kcheck/internal/detektlog"
	"github.com/detekt/kcheck/internal/models"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

func sanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	s = strings.Trim(s, ".")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// Filename returns the transcript filename for a case.
func Filename(caseID string, ts time.Time) string {
	return fmt.Sprintf("%s-%s.json", sanitizeName(caseID), ts.UTC().Format("20060102-150405"))
}

// Write serializes a CaseTranscript into dir and returns the file path.
func Write(dir string, t *models.CaseTranscript) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}

	path := filepath.Join(dir, Filename(t.CaseID, t.StartedAt))

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}

	return path, nil
}

// Build assembles the transcript of one finished case.
func Build(suiteName string, sources []models.SourceFile, outcome *models.CaseOutcome, startTime time.Time) *models.CaseTranscript {
	if sources == nil {
		sources = []models.SourceFile{}
	}

	return &models.CaseTranscript{
		SuiteName:   suiteName,
		CaseID:      outcome.CaseID,
		CaseName:    outcome.DisplayName,
		Status:      outcome.Status,
		Cached:      outcome.Cached,
		StartedAt:   startTime,
		CompletedAt: startTime.Add(time.Duration(outcome.DurationMs) * time.Millisecond),
		DurationMs:  outcome.DurationMs,
		Sources:     sources,
		ExitCode:    outcome.ExitCode,
		Output:      outcome.Output,
		RunBlock:    detektlog.ExtractRunBlock(outcome.Output),
		Analysis:    outcome.Analysis,
		ParseError:  outcome.ParseError,
		Checks:      outcome.Checks,
		ErrorMsg:    outcome.ErrorMsg,
	}
}
