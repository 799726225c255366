package models

import "time"

// CaseTranscript is the per-case JSON file written to the transcript
// directory. It keeps everything needed to reproduce a verdict by hand: the
// sources that were compiled, the full compiler output and the detekt run
// extracted from it.
type CaseTranscript struct {
	SuiteName   string          `json:"suite_name"`
	CaseID      string          `json:"case_id"`
	CaseName    string          `json:"case_name"`
	Status      Status          `json:"status"`
	Cached      bool            `json:"cached,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	DurationMs  int64           `json:"duration_ms"`
	Sources     []SourceFile    `json:"sources"`
	ExitCode    ExitCode        `json:"exit_code,omitempty"`
	Output      string          `json:"output"`
	RunBlock    []string        `json:"run_block"`
	Analysis    *AnalysisResult `json:"analysis,omitempty"`
	ParseError  string          `json:"parse_error,omitempty"`
	Checks      []CheckResult   `json:"checks"`
	ErrorMsg    string          `json:"error_msg,omitempty"`
}
