// Package hooks runs the shell commands a suite attaches to its lifecycle:
// before and after the whole run, and before and after every case.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
)

// Lifecycle points, also used as the hook name in logs and errors.
const (
	BeforeRun  = "before_run"
	AfterRun   = "after_run"
	BeforeCase = "before_case"
	AfterCase  = "after_case"
)

// HookConfig defines a single hook command.
type HookConfig struct {
	Command          string `yaml:"command" json:"command"`
	WorkingDirectory string `yaml:"working_directory,omitempty" json:"working_directory,omitempty"`
	ExitCodes        []int  `yaml:"exit_codes,omitempty" json:"exit_codes,omitempty"`
	ErrorOnFail      bool   `yaml:"error_on_fail,omitempty" json:"error_on_fail,omitempty"`
}

// HooksConfig holds all lifecycle hooks.
type HooksConfig struct {
	BeforeRun  []HookConfig `yaml:"before_run,omitempty" json:"before_run,omitempty"`
	AfterRun   []HookConfig `yaml:"after_run,omitempty" json:"after_run,omitempty"`
	BeforeCase []HookConfig `yaml:"before_case,omitempty" json:"before_case,omitempty"`
	AfterCase  []HookConfig `yaml:"after_case,omitempty" json:"after_case,omitempty"`
}

// Runner executes hook commands at lifecycle points.
type Runner struct {
	// BaseDir is used when a hook has no working_directory.
	BaseDir string
}

// Execute runs hooks in order. env is added to each command's environment,
// e.g. KCHECK_CASE_ID for case hooks. The first hook that fails with
// error_on_fail stops the sequence.
func (r *Runner) Execute(ctx context.Context, name string, hooks []HookConfig, env ...string) error {
	for i, h := range hooks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("hook %s: context canceled: %w", name, err)
		}

		if err := r.runHook(ctx, name, i, h, env); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runHook(ctx context.Context, name string, index int, h HookConfig, env []string) error {
	parts := strings.Fields(h.Command)
	if len(parts) == 0 {
		return fmt.Errorf("hook %s[%d]: empty command", name, index)
	}

	//nolint:gosec // hook commands are user-configured in suite YAML, not untrusted input
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Env = append(cmd.Environ(), env...)

	cmd.Dir = r.BaseDir
	if h.WorkingDirectory != "" {
		cmd.Dir = h.WorkingDirectory
	}

	output, err := cmd.CombinedOutput()
	if len(output) > 0 {
		slog.Debug("hook output", "hook", name, "index", index, "output", string(output))
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// command not found, permission denied, ...
			if h.ErrorOnFail {
				return fmt.Errorf("hook %s[%d]: %w", name, index, err)
			}
			slog.Warn("hook failed, continuing", "hook", name, "index", index, "error", err)
			return nil
		}
		exitCode = exitErr.ExitCode()
	}

	if isAcceptableExit(exitCode, h.ExitCodes) {
		return nil
	}

	if h.ErrorOnFail {
		return fmt.Errorf("hook %s[%d]: command exited with code %d", name, index, exitCode)
	}
	slog.Warn("hook exited with unexpected code, continuing", "hook", name, "index", index, "exit_code", exitCode)
	return nil
}

// isAcceptableExit checks whether exitCode is in the allowed list.
// An empty allowedCodes list defaults to allowing only exit code 0.
func isAcceptableExit(exitCode int, allowedCodes []int) bool {
	if len(allowedCodes) == 0 {
		return exitCode == 0
	}
	return slices.Contains(allowedCodes, exitCode)
}
