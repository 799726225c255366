package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/detekt/kcheck/internal/models"
)

const (
	// DefaultPluginID is the id the detekt compiler plugin registers its
	// command line options under.
	DefaultPluginID = "detekt-compiler-plugin"

	// EnvKotlinc overrides the configured kotlinc binary.
	EnvKotlinc = "KCHECK_KOTLINC"

	defaultTimeout = 120 * time.Second
	// waitDelay bounds how long output copying may continue after kotlinc
	// is killed, in case a child JVM still holds the pipes.
	waitDelay = 5 * time.Second
)

// KotlincOptions holds the arguments for creating a [KotlincCompiler].
type KotlincOptions struct {
	// Path is the kotlinc binary. Resolved with [Locate] when empty.
	Path string
	// PluginJar is the detekt compiler plugin jar passed with -Xplugin.
	PluginJar string
	// PluginID defaults to [DefaultPluginID].
	PluginID string
	// Args are passed to every invocation, before per-request args.
	Args []string
	// Timeout is used when a request doesn't set one.
	Timeout time.Duration
}

// KotlincCompiler compiles sources with a local kotlinc installation. Each
// invocation gets its own temporary workspace, removed afterwards.
type KotlincCompiler struct {
	path      string
	pluginJar string
	pluginID  string
	args      []string
	timeout   time.Duration
}

// NewKotlincCompiler creates a [KotlincCompiler], resolving the kotlinc binary.
func NewKotlincCompiler(opts KotlincOptions) (*KotlincCompiler, error) {
	path, err := Locate(opts.Path)
	if err != nil {
		return nil, err
	}

	if opts.PluginJar != "" {
		if _, err := os.Stat(opts.PluginJar); err != nil {
			return nil, fmt.Errorf("detekt plugin jar: %w", err)
		}
	}

	pluginID := opts.PluginID
	if pluginID == "" {
		pluginID = DefaultPluginID
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &KotlincCompiler{
		path:      path,
		pluginJar: opts.PluginJar,
		pluginID:  pluginID,
		args:      opts.Args,
		timeout:   timeout,
	}, nil
}

// Locate resolves the kotlinc binary. [EnvKotlinc] wins over configured,
// which wins over a kotlinc found on PATH.
func Locate(configured string) (string, error) {
	if env := os.Getenv(EnvKotlinc); env != "" {
		configured = env
	}

	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("kotlinc not found at %s: %w", configured, err)
		}
		return configured, nil
	}

	path, err := exec.LookPath("kotlinc")
	if err != nil {
		return "", fmt.Errorf("kotlinc not found on PATH (set %s or compiler.kotlinc in .kcheck.yaml): %w", EnvKotlinc, err)
	}
	return path, nil
}

func (k *KotlincCompiler) Name() string { return "kotlinc" }

// Path returns the resolved kotlinc binary.
func (k *KotlincCompiler) Path() string { return k.path }

func (k *KotlincCompiler) Compile(ctx context.Context, req *Request) (*models.InvocationResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = k.timeout
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	workspace, err := os.MkdirTemp("", "kcheck-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create compiler workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			slog.Warn("failed to remove compiler workspace", "dir", workspace, "error", err)
		}
	}()

	files, err := writeSources(filepath.Join(workspace, "src"), req.Sources)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("case '%s' has no sources to compile", req.CaseID)
	}

	args := k.commandArgs(filepath.Join(workspace, "out"), files, req)

	//nolint:gosec // kotlinc path and args come from the user's own configuration
	cmd := exec.CommandContext(timeoutCtx, k.path, args...)
	cmd.Dir = workspace
	cmd.WaitDelay = waitDelay

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	slog.Debug("Running kotlinc", "case", req.CaseID, "path", k.path, "args", strings.Join(args, " "))

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if timeoutCtx.Err() != nil {
		return nil, fmt.Errorf("kotlinc for case '%s' did not finish within %s: %w", req.CaseID, timeout, timeoutCtx.Err())
	}

	exitStatus := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("running kotlinc: %w", runErr)
		}
		exitStatus = exitErr.ExitCode()
	}

	result := &models.InvocationResult{
		ExitCode:   models.ExitCodeFromProcess(exitStatus),
		Output:     output.String(),
		DurationMs: duration.Milliseconds(),
	}

	slog.Debug("kotlinc finished", "case", req.CaseID, "exit_code", result.ExitCode, "duration_ms", result.DurationMs)

	return result, nil
}

func (k *KotlincCompiler) commandArgs(outDir string, files []string, req *Request) []string {
	var args []string

	if k.pluginJar != "" {
		args = append(args, "-Xplugin="+k.pluginJar)
	}

	keys := make([]string, 0, len(req.PluginOptions))
	for key := range req.PluginOptions {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		args = append(args, "-P", fmt.Sprintf("plugin:%s:%s=%s", k.pluginID, key, req.PluginOptions[key]))
	}

	args = append(args, k.args...)
	args = append(args, req.Args...)
	args = append(args, "-d", outDir)
	args = append(args, files...)

	return args
}
