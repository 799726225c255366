package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/detekt/kcheck/internal/cache"
	"github.com/detekt/kcheck/internal/checks"
	"github.com/detekt/kcheck/internal/compiler"
	"github.com/detekt/kcheck/internal/config"
	"github.com/detekt/kcheck/internal/detektlog"
	"github.com/detekt/kcheck/internal/hooks"
	"github.com/detekt/kcheck/internal/models"
	"github.com/detekt/kcheck/internal/transcript"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Environment variables handed to hook commands.
const (
	EnvRunID  = "KCHECK_RUN_ID"
	EnvSuite  = "KCHECK_SUITE"
	EnvCaseID = "KCHECK_CASE_ID"
)

// Runner orchestrates the execution of a suite
type Runner struct {
	cfg      *config.RunConfig
	compiler compiler.Compiler

	pluginJar string

	// Result caching
	cache         *cache.Cache
	cacheSettings cache.Settings

	hookRunner *hooks.Runner

	// Progress tracking
	progressMu sync.Mutex
	listeners  []ProgressListener
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventRunStart     EventType = "run_start"
	EventRunComplete  EventType = "run_complete"
	EventRunStopped   EventType = "run_stopped"
	EventCaseStart    EventType = "case_start"
	EventCaseComplete EventType = "case_complete"
	EventCaseCached   EventType = "case_cached"
	EventCaseSkipped  EventType = "case_skipped"
	EventCompilerOut  EventType = "compiler_output"
	EventCheckResult  EventType = "check_result"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType  EventType
	CaseID     string
	CaseName   string
	CaseNum    int
	TotalCases int
	Status     models.Status
	DurationMs int64
	Details    map[string]any
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCache enables result caching. settings describe the compiler so that a
// different kotlinc or plugin jar never hits a stale entry.
func WithCache(c *cache.Cache, settings cache.Settings) RunnerOption {
	return func(r *Runner) {
		r.cache = c
		r.cacheSettings = settings
	}
}

// WithPluginJar records the plugin jar in the run's setup.
func WithPluginJar(path string) RunnerOption {
	return func(r *Runner) {
		r.pluginJar = path
	}
}

// NewRunner creates a new suite runner
func NewRunner(cfg *config.RunConfig, comp compiler.Compiler, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:        cfg,
		compiler:   comp,
		hookRunner: &hooks.Runner{BaseDir: cfg.SuiteDir()},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnProgress registers a progress listener
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run executes the whole suite. Case failures and compiler errors are
// reported in the outcome; an error is returned only when the run itself
// could not proceed (bad filter, failing before_run hook, cancellation).
func (r *Runner) Run(ctx context.Context) (*models.SuiteOutcome, error) {
	startTime := time.Now()
	suite := r.cfg.Suite()
	runID := uuid.NewString()
	runEnv := []string{EnvRunID + "=" + runID, EnvSuite + "=" + suite.Name}

	cases, err := FilterCases(suite.Cases, r.cfg.CaseFilter())
	if err != nil {
		return nil, fmt.Errorf("case filter error: %w", err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no cases in suite '%s' match the filter", suite.Name)
	}
	if len(cases) != len(suite.Cases) {
		slog.Debug("case filter applied", "matched", len(cases), "total", len(suite.Cases))
	}

	// after_run runs even when the run fails
	defer func() {
		if len(suite.Hooks.AfterRun) == 0 {
			return
		}
		if err := r.hookRunner.Execute(context.WithoutCancel(ctx), hooks.AfterRun, suite.Hooks.AfterRun, runEnv...); err != nil {
			slog.Warn("after_run hook error", "error", err)
		}
	}()

	if err := r.hookRunner.Execute(ctx, hooks.BeforeRun, suite.Hooks.BeforeRun, runEnv...); err != nil {
		return nil, fmt.Errorf("before_run hook failed: %w", err)
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventRunStart,
		TotalCases: len(cases),
		Details:    map[string]any{"run_id": runID, "compiler": r.compiler.Name()},
	})

	var outcomes []models.CaseOutcome
	if r.cfg.Parallel() {
		if suite.Config.StopOnError {
			slog.Warn("fail_fast is ignored when cases run in parallel")
		}
		outcomes = r.runConcurrent(ctx, cases, runEnv)
	} else {
		outcomes = r.runSequential(ctx, cases, runEnv)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run canceled: %w", err)
	}

	outcome := r.buildOutcome(runID, outcomes, startTime)

	r.notifyProgress(ProgressEvent{
		EventType:  EventRunComplete,
		TotalCases: len(cases),
		DurationMs: outcome.Digest.DurationMs,
		Details: map[string]any{
			"succeeded": outcome.Digest.Succeeded,
			"failed":    outcome.Digest.Failed,
			"errors":    outcome.Digest.Errors,
			"skipped":   outcome.Digest.Skipped,
		},
	})

	return outcome, nil
}

func (r *Runner) runSequential(ctx context.Context, cases []models.CaseSpec, runEnv []string) []models.CaseOutcome {
	outcomes := make([]models.CaseOutcome, 0, len(cases))
	stopOnError := r.cfg.Suite().Config.StopOnError

	for i := range cases {
		if ctx.Err() != nil {
			break
		}

		outcome := r.runCase(ctx, &cases[i], i+1, len(cases), runEnv)
		outcomes = append(outcomes, outcome)

		if stopOnError && outcome.Status != models.StatusPassed {
			r.notifyProgress(ProgressEvent{
				EventType: EventRunStopped,
				CaseID:    outcome.CaseID,
				Details:   map[string]any{"reason": "fail_fast enabled and a case did not pass"},
			})
			for j := i + 1; j < len(cases); j++ {
				outcomes = append(outcomes, r.skipCase(&cases[j], j+1, len(cases)))
			}
			break
		}
	}

	return outcomes
}

func (r *Runner) runConcurrent(ctx context.Context, cases []models.CaseSpec, runEnv []string) []models.CaseOutcome {
	results := make([]models.CaseOutcome, len(cases))

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers())

	for i := range cases {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = r.skipCase(&cases[i], i+1, len(cases))
				return nil
			}
			results[i] = r.runCase(ctx, &cases[i], i+1, len(cases), runEnv)
			return nil
		})
	}

	// runCase reports failures in the outcome, so Wait never returns an error.
	_ = g.Wait()
	return results
}

func (r *Runner) skipCase(c *models.CaseSpec, caseNum, total int) models.CaseOutcome {
	r.notifyProgress(ProgressEvent{
		EventType:  EventCaseSkipped,
		CaseID:     c.CaseID,
		CaseName:   c.Name(),
		CaseNum:    caseNum,
		TotalCases: total,
		Status:     models.StatusSkipped,
	})
	return models.CaseOutcome{
		CaseID:      c.CaseID,
		DisplayName: c.Name(),
		Tags:        c.Tags,
		Status:      models.StatusSkipped,
		Checks:      []models.CheckResult{},
	}
}

func (r *Runner) runCase(ctx context.Context, c *models.CaseSpec, caseNum, total int, runEnv []string) models.CaseOutcome {
	suite := r.cfg.Suite()
	caseEnv := append(append([]string{}, runEnv...), EnvCaseID+"="+c.CaseID)

	if err := r.hookRunner.Execute(ctx, hooks.BeforeCase, suite.Hooks.BeforeCase, caseEnv...); err != nil {
		outcome := errorOutcome(c, fmt.Errorf("before_case hook: %w", err))
		r.notifyCaseComplete(&outcome, caseNum, total, EventCaseComplete)
		return outcome
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventCaseStart,
		CaseID:     c.CaseID,
		CaseName:   c.Name(),
		CaseNum:    caseNum,
		TotalCases: total,
	})

	caseStart := time.Now()
	outcome, cached := r.runCaseCached(ctx, c, caseNum, total)
	r.writeTranscript(c, &outcome, caseStart)

	if err := r.hookRunner.Execute(ctx, hooks.AfterCase, suite.Hooks.AfterCase, caseEnv...); err != nil {
		slog.Warn("after_case hook error", "case", c.CaseID, "error", err)
	}

	event := EventCaseComplete
	if cached {
		event = EventCaseCached
	}
	r.notifyCaseComplete(&outcome, caseNum, total, event)
	return outcome
}

func (r *Runner) writeTranscript(c *models.CaseSpec, outcome *models.CaseOutcome, startTime time.Time) {
	dir := r.cfg.TranscriptDir()
	if dir == "" {
		return
	}

	// sources were readable moments ago unless the case failed on them
	sources, _ := c.ResolveSources(r.cfg.SuiteDir()) //nolint:errcheck
	t := transcript.Build(r.cfg.Suite().Name, sources, outcome, startTime)
	if _, err := transcript.Write(dir, t); err != nil {
		slog.Warn("failed to write transcript", "case", c.CaseID, "error", err)
	}
}

func (r *Runner) notifyCaseComplete(o *models.CaseOutcome, caseNum, total int, event EventType) {
	details := map[string]any{"failed_checks": len(o.FailedChecks())}
	if o.ErrorMsg != "" {
		details["error"] = o.ErrorMsg
	}
	if o.Analysis != nil {
		details["violations"] = len(o.Analysis.Violations)
	}

	r.notifyProgress(ProgressEvent{
		EventType:  event,
		CaseID:     o.CaseID,
		CaseName:   o.DisplayName,
		CaseNum:    caseNum,
		TotalCases: total,
		Status:     o.Status,
		DurationMs: o.DurationMs,
		Details:    details,
	})
}

func (r *Runner) runCaseCached(ctx context.Context, c *models.CaseSpec, caseNum, total int) (models.CaseOutcome, bool) {
	sources, err := c.ResolveSources(r.cfg.SuiteDir())
	if err != nil {
		return errorOutcome(c, err), false
	}

	if r.cache == nil {
		return r.runCaseUncached(ctx, c, sources, caseNum, total), false
	}

	key, err := cache.CacheKey(r.cfg.Suite(), c, sources, r.cacheSettings)
	if err != nil {
		slog.Warn("cache key generation failed", "case", c.CaseID, "error", err)
		return r.runCaseUncached(ctx, c, sources, caseNum, total), false
	}

	if cached, found := r.cache.Get(key); found {
		cached.Cached = true
		return *cached, true
	}

	outcome := r.runCaseUncached(ctx, c, sources, caseNum, total)
	// errors are usually environmental (missing kotlinc, timeouts), so they
	// are retried on the next run
	if outcome.Status != models.StatusError {
		if err := r.cache.Put(key, &outcome); err != nil {
			slog.Warn("failed to write cache entry", "case", c.CaseID, "error", err)
		}
	}
	return outcome, false
}

func (r *Runner) runCaseUncached(ctx context.Context, c *models.CaseSpec, sources []models.SourceFile, caseNum, total int) models.CaseOutcome {
	suite := r.cfg.Suite()
	startTime := time.Now()

	caseChecks, err := r.buildChecks(c)
	if err != nil {
		return errorOutcome(c, err)
	}

	req := &compiler.Request{
		CaseID:        c.CaseID,
		Sources:       sources,
		Args:          suite.Config.CompilerArgs,
		PluginOptions: suite.Config.PluginOptions,
		Timeout:       time.Duration(suite.Config.TimeoutSec) * time.Second,
	}

	slog.Debug("compiling case", "case", c.CaseID, "sources", len(sources), "compiler", r.compiler.Name())
	inv, err := r.compiler.Compile(ctx, req)
	if err != nil {
		outcome := errorOutcome(c, fmt.Errorf("compiling: %w", err))
		outcome.DurationMs = time.Since(startTime).Milliseconds()
		return outcome
	}

	if r.cfg.Verbose() {
		r.notifyProgress(ProgressEvent{
			EventType:  EventCompilerOut,
			CaseID:     c.CaseID,
			CaseName:   c.Name(),
			CaseNum:    caseNum,
			TotalCases: total,
			Details:    map[string]any{"exit_code": inv.ExitCode, "output": inv.Output},
		})
	}

	outcome := models.CaseOutcome{
		CaseID:      c.CaseID,
		DisplayName: c.Name(),
		Tags:        c.Tags,
		ExitCode:    inv.ExitCode,
		Output:      inv.Output,
		Checks:      make([]models.CheckResult, 0, len(caseChecks)),
	}

	analysis, err := detektlog.ParseOutput(inv.Output)
	if err != nil {
		outcome.ParseError = err.Error()
	} else {
		outcome.Analysis = analysis
	}

	checkCtx := &checks.Context{CaseID: c.CaseID, Invocation: inv}
	for _, check := range caseChecks {
		result, err := check.Run(ctx, checkCtx)
		if err != nil {
			outcome.Status = models.StatusError
			outcome.ErrorMsg = fmt.Sprintf("running check '%s': %v", check.Name(), err)
			outcome.DurationMs = time.Since(startTime).Milliseconds()
			return outcome
		}

		outcome.Checks = append(outcome.Checks, *result)
		r.notifyProgress(ProgressEvent{
			EventType:  EventCheckResult,
			CaseID:     c.CaseID,
			CaseName:   c.Name(),
			DurationMs: result.DurationMs,
			Details: map[string]any{
				"check":      result.Name,
				"check_type": result.Kind,
				"passed":     result.Passed,
				"feedback":   result.Feedback,
			},
		})
	}

	outcome.Status = models.StatusPassed
	if !outcome.AllChecksPassed() {
		outcome.Status = models.StatusFailed
	}
	outcome.DurationMs = time.Since(startTime).Milliseconds()

	slog.Debug("case finished", "case", c.CaseID, "status", outcome.Status, "exit_code", inv.ExitCode, "duration_ms", outcome.DurationMs)
	return outcome
}

// buildChecks returns the suite-wide checks followed by the case's own. A
// case with no checks at all only has to compile.
func (r *Runner) buildChecks(c *models.CaseSpec) ([]checks.Check, error) {
	configs := append(append([]models.CheckConfig{}, r.cfg.Suite().Checks...), c.Checks...)
	if len(configs) == 0 {
		configs = []models.CheckConfig{{Kind: models.CheckKindCompilation}}
	}

	built, err := checks.CreateAll(configs)
	if err != nil {
		return nil, fmt.Errorf("creating checks: %w", err)
	}
	return built, nil
}

func errorOutcome(c *models.CaseSpec, err error) models.CaseOutcome {
	return models.CaseOutcome{
		CaseID:      c.CaseID,
		DisplayName: c.Name(),
		Tags:        c.Tags,
		Status:      models.StatusError,
		Checks:      []models.CheckResult{},
		ErrorMsg:    err.Error(),
	}
}

func (r *Runner) buildOutcome(runID string, outcomes []models.CaseOutcome, startTime time.Time) *models.SuiteOutcome {
	suite := r.cfg.Suite()

	setup := models.OutcomeSetup{
		Compiler:   r.compiler.Name(),
		PluginJar:  r.pluginJar,
		TimeoutSec: suite.Config.TimeoutSec,
		Parallel:   r.cfg.Parallel(),
	}
	if setup.Parallel {
		setup.Workers = r.cfg.Workers()
	}

	return &models.SuiteOutcome{
		RunID:        runID,
		SuiteName:    suite.Name,
		Timestamp:    startTime,
		Setup:        setup,
		Digest:       models.ComputeDigest(outcomes, time.Since(startTime)),
		CaseOutcomes: outcomes,
		Metadata:     make(map[string]any),
	}
}
