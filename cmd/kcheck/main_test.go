package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestFailureError(t *testing.T) {
	err := &TestFailureError{
		Message: "suite completed with 2 failed and 1 error(s)",
	}

	assert.Equal(t, "suite completed with 2 failed and 1 error(s)", err.Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"test failure", &TestFailureError{Message: "x"}, ExitTestFailed},
		{"wrapped test failure", fmt.Errorf("run: %w", &TestFailureError{Message: "x"}), ExitTestFailed},
		{"joined test failure", errors.Join(&TestFailureError{Message: "x"}, errors.New("more")), ExitTestFailed},
		{"regular error", errors.New("config error"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
