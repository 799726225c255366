package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // All cases passed
	ExitTestFailed = 1 // One or more cases or assertions failed
	ExitError      = 2 // Configuration or runtime error
)

// TestFailureError indicates that kcheck ran to completion, but one or more
// cases or assertions did not hold.
type TestFailureError struct {
	Message string
}

func (e *TestFailureError) Error() string {
	return e.Message
}

// exitCode maps an error returned by the root command to a process status.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var testFailureErr *TestFailureError
	if errors.As(err, &testFailureErr) {
		return ExitTestFailed
	}
	return ExitError
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
