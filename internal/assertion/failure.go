package assertion

// FailureKind identifies which assertion failed.
type FailureKind string

const (
	// KindMissingStatusLine means the detekt run never reported a status, or
	// reported one that isn't a boolean. This is distinct from a run that
	// reported "false".
	KindMissingStatusLine          FailureKind = "MissingStatusLine"
	KindCompilationOutcomeMismatch FailureKind = "CompilationOutcomeMismatch"
	KindDetektStatusMismatch       FailureKind = "DetektStatusMismatch"
	KindViolationCountMismatch     FailureKind = "ViolationCountMismatch"
	KindMissingExpectedViolation   FailureKind = "MissingExpectedViolation"
	KindUnexpectedViolation        FailureKind = "UnexpectedViolation"
)

// Failure is the error produced by a failed assertion.
type Failure struct {
	Kind     FailureKind
	Actual   any
	Expected any
	Message  string
	// Missing lists the rules that caused a rule assertion to fail.
	Missing []string
	// Cause is the parse error behind a [KindMissingStatusLine] failure.
	Cause error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Cause }
