package runlog

import "time"

// EventType identifies the kind of run event.
type EventType string

const (
	EventRunStart     EventType = "run_start"
	EventRunComplete  EventType = "run_complete"
	EventRunStopped   EventType = "run_stopped"
	EventCaseStart    EventType = "case_start"
	EventCaseComplete EventType = "case_complete"
	EventCheckResult  EventType = "check_result"
	EventError        EventType = "error"
)

// Event is a single timestamped entry in a run log. RunID ties the event to
// the run_start it follows, so several runs can share one log file.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

func RunStartData(suitePath, runID, compiler string, caseCount int) map[string]any {
	return map[string]any{
		"suite_path": suitePath,
		"run_id":     runID,
		"compiler":   compiler,
		"case_count": caseCount,
	}
}

func RunCompleteData(total, succeeded, failed, errors int, durationMs int64) map[string]any {
	return map[string]any{
		"total_cases": total,
		"succeeded":   succeeded,
		"failed":      failed,
		"errors":      errors,
		"duration_ms": durationMs,
	}
}

func CaseStartData(caseID, caseName string, caseNum, totalCases int) map[string]any {
	return map[string]any{
		"case_id":     caseID,
		"case_name":   caseName,
		"case_num":    caseNum,
		"total_cases": totalCases,
	}
}

// CaseCompleteData describes a finished case. violations is -1 when the
// compiler output held no parsed detekt run.
func CaseCompleteData(caseID, caseName, status string, cached bool, violations int, durationMs int64) map[string]any {
	d := map[string]any{
		"case_id":     caseID,
		"case_name":   caseName,
		"status":      status,
		"duration_ms": durationMs,
	}
	if cached {
		d["cached"] = true
	}
	if violations >= 0 {
		d["violations"] = violations
	}
	return d
}

func CheckResultData(caseID, check, kind string, passed bool, feedback string) map[string]any {
	return map[string]any{
		"case_id":  caseID,
		"check":    check,
		"kind":     kind,
		"passed":   passed,
		"feedback": feedback,
	}
}

// ErrorData returns event data for an error. details are merged in.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
