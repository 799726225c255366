package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/detekt/kcheck/internal/models"
)

// FakeCompiler replays canned invocation results keyed by case id. It lets
// suites and the CLI be exercised without a Kotlin toolchain.
type FakeCompiler struct {
	mu        sync.Mutex
	responses map[string]models.InvocationResult
	requests  []Request
}

// NewFakeCompiler creates a [FakeCompiler] with the given responses.
func NewFakeCompiler(responses map[string]models.InvocationResult) *FakeCompiler {
	if responses == nil {
		responses = map[string]models.InvocationResult{}
	}
	return &FakeCompiler{responses: responses}
}

// LoadFakeCompiler reads canned responses from dir. For a case id "foo",
// foo.log holds the compiler output and the optional foo.exit holds the exit
// code, either symbolic ("COMPILATION_ERROR") or numeric ("1"). Without an
// exit file the code is OK.
func LoadFakeCompiler(dir string) (*FakeCompiler, error) {
	logs, err := filepath.Glob(filepath.Join(dir, "*.log"))
	if err != nil {
		return nil, err
	}

	responses := make(map[string]models.InvocationResult, len(logs))
	for _, logPath := range logs {
		caseID := strings.TrimSuffix(filepath.Base(logPath), ".log")

		output, err := os.ReadFile(logPath)
		if err != nil {
			return nil, fmt.Errorf("reading canned output for case '%s': %w", caseID, err)
		}

		exitCode := models.ExitCodeOK
		exitData, err := os.ReadFile(filepath.Join(dir, caseID+".exit"))
		switch {
		case err == nil:
			exitCode, err = models.ParseExitCode(strings.TrimSpace(string(exitData)))
			if err != nil {
				return nil, fmt.Errorf("case '%s': %w", caseID, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading exit code for case '%s': %w", caseID, err)
		}

		responses[caseID] = models.InvocationResult{ExitCode: exitCode, Output: string(output)}
	}

	return NewFakeCompiler(responses), nil
}

func (f *FakeCompiler) Name() string { return "fake" }

// Set registers the response for a case id.
func (f *FakeCompiler) Set(caseID string, result models.InvocationResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[caseID] = result
}

func (f *FakeCompiler) Compile(ctx context.Context, req *Request) (*models.InvocationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, *req)

	result, ok := f.responses[req.CaseID]
	if !ok {
		return nil, fmt.Errorf("fake compiler has no canned output for case '%s'", req.CaseID)
	}
	return &result, nil
}

// Requests returns every request received so far, in arrival order.
func (f *FakeCompiler) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}
