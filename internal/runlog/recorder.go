package runlog

import (
	"log/slog"
	"sync"

	"github.com/detekt/kcheck/internal/models"
	"github.com/detekt/kcheck/internal/orchestration"
)

// Recorder turns runner progress events into run log events. Its Listen
// method is registered with [orchestration.Runner.OnProgress].
type Recorder struct {
	logger    Logger
	suitePath string

	warnOnce sync.Once
}

func NewRecorder(logger Logger, suitePath string) *Recorder {
	return &Recorder{logger: logger, suitePath: suitePath}
}

// Listen records e. Compiler output is left to transcripts and not logged.
func (r *Recorder) Listen(e orchestration.ProgressEvent) {
	for _, ev := range r.translate(e) {
		if err := r.logger.Log(ev); err != nil {
			r.warnOnce.Do(func() {
				slog.Warn("failed to write run log", "error", err)
			})
		}
	}
}

func (r *Recorder) translate(e orchestration.ProgressEvent) []Event {
	switch e.EventType {
	case orchestration.EventRunStart:
		runID, _ := e.Details["run_id"].(string)
		compiler, _ := e.Details["compiler"].(string)
		return []Event{NewEvent(EventRunStart, RunStartData(r.suitePath, runID, compiler, e.TotalCases))}

	case orchestration.EventCaseStart:
		return []Event{NewEvent(EventCaseStart, CaseStartData(e.CaseID, e.CaseName, e.CaseNum, e.TotalCases))}

	case orchestration.EventCheckResult:
		check, _ := e.Details["check"].(string)
		passed, _ := e.Details["passed"].(bool)
		feedback, _ := e.Details["feedback"].(string)
		kind, _ := e.Details["check_type"].(models.CheckKind)
		return []Event{NewEvent(EventCheckResult, CheckResultData(e.CaseID, check, string(kind), passed, feedback))}

	case orchestration.EventCaseComplete, orchestration.EventCaseCached, orchestration.EventCaseSkipped:
		var events []Event
		if msg, ok := e.Details["error"].(string); ok && msg != "" {
			events = append(events, NewEvent(EventError, ErrorData(msg, map[string]any{"case_id": e.CaseID})))
		}
		violations := -1
		if v, ok := e.Details["violations"].(int); ok {
			violations = v
		}
		cached := e.EventType == orchestration.EventCaseCached
		data := CaseCompleteData(e.CaseID, e.CaseName, string(e.Status), cached, violations, e.DurationMs)
		return append(events, NewEvent(EventCaseComplete, data))

	case orchestration.EventRunStopped:
		reason, _ := e.Details["reason"].(string)
		return []Event{NewEvent(EventRunStopped, map[string]any{"reason": reason})}

	case orchestration.EventRunComplete:
		succeeded, _ := e.Details["succeeded"].(int)
		failed, _ := e.Details["failed"].(int)
		errs, _ := e.Details["errors"].(int)
		return []Event{NewEvent(EventRunComplete, RunCompleteData(e.TotalCases, succeeded, failed, errs, e.DurationMs))}
	}
	return nil
}
