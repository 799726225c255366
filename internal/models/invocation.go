package models

import (
	"fmt"
	"strconv"
)

// ExitCode is the outcome reported by a single compiler invocation.
type ExitCode string

const (
	ExitCodeOK                   ExitCode = "OK"
	ExitCodeCompilationError     ExitCode = "COMPILATION_ERROR"
	ExitCodeInternalError        ExitCode = "INTERNAL_ERROR"
	ExitCodeScriptExecutionError ExitCode = "SCRIPT_EXECUTION_ERROR"
)

// ExitCodeFromProcess maps a kotlinc process exit status to an [ExitCode].
// Codes kotlinc does not document are reported as [ExitCodeInternalError].
func ExitCodeFromProcess(code int) ExitCode {
	switch code {
	case 0:
		return ExitCodeOK
	case 1:
		return ExitCodeCompilationError
	case 3:
		return ExitCodeScriptExecutionError
	default:
		return ExitCodeInternalError
	}
}

func (c ExitCode) String() string { return string(c) }

// Valid reports whether c is one of the known exit codes.
func (c ExitCode) Valid() bool {
	switch c {
	case ExitCodeOK, ExitCodeCompilationError, ExitCodeInternalError, ExitCodeScriptExecutionError:
		return true
	}
	return false
}

// ParseExitCode accepts either the symbolic name (e.g. "COMPILATION_ERROR")
// or the numeric process status ("1").
func ParseExitCode(s string) (ExitCode, error) {
	c := ExitCode(s)
	if c.Valid() {
		return c, nil
	}

	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return ExitCodeFromProcess(n), nil
	}

	return "", fmt.Errorf("'%s' is not a valid exit code", s)
}

// InvocationResult is the captured result of one compiler run. It is produced
// once by the invocation runner and never modified afterwards.
type InvocationResult struct {
	ExitCode ExitCode `json:"exit_code"`
	// Output is the combined stdout/stderr text, newline-delimited.
	Output     string `json:"output"`
	DurationMs int64  `json:"duration_ms"`
}
