// Package compiler runs kotlinc with the detekt compiler plugin and captures
// the result as a [models.InvocationResult].
package compiler

//go:generate go tool mockgen -source=compiler.go -destination=compiler_mock.go -package=compiler

import (
	"context"
	"time"

	"github.com/detekt/kcheck/internal/models"
)

// Compiler is the interface for invoking a Kotlin compiler
type Compiler interface {
	// Name identifies the implementation (e.g. "kotlinc", "fake")
	Name() string

	// Compile compiles the request's sources and returns the captured
	// output. A compilation failure is reported through the result's exit
	// code, not as an error.
	Compile(ctx context.Context, req *Request) (*models.InvocationResult, error)
}

// Request represents one compiler invocation
type Request struct {
	CaseID  string
	Sources []models.SourceFile
	// Args are passed to the compiler after the configured default args.
	Args []string
	// PluginOptions become -P plugin:<id>:<key>=<value> arguments.
	PluginOptions map[string]string
	// Timeout bounds the invocation. Zero means the compiler's default.
	Timeout time.Duration
}
