package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/detekt/kcheck/internal/cache"
	"github.com/detekt/kcheck/internal/compiler"
	"github.com/detekt/kcheck/internal/config"
	"github.com/detekt/kcheck/internal/history"
	"github.com/detekt/kcheck/internal/models"
	"github.com/detekt/kcheck/internal/orchestration"
	"github.com/detekt/kcheck/internal/projectconfig"
	"github.com/detekt/kcheck/internal/reporting"
	"github.com/detekt/kcheck/internal/runlog"
	"github.com/spf13/cobra"
)

const (
	compilerKotlinc = "kotlinc"
	compilerFake    = "fake"
)

type runOptions struct {
	caseFilters   []string
	parallel      bool
	workers       int
	outputPath    string
	junitPath     string
	format        string
	interpret     bool
	enableCache   bool
	disableCache  bool
	cacheDir      string
	compiler      string
	fakeDir       string
	transcriptDir string
	eventLog      string
	historyDB     string
	verbose       bool
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <suite.yaml>",
		Short: "Run a kcheck suite",
		Long: `Run every case of a suite: compile its sources with kotlinc and the detekt
plugin, then evaluate the case's checks against the compiler output.

A relative suite path that doesn't exist is also looked up in the suites
directory configured in .kcheck.yaml.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommandE(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.caseFilters, "case", nil, "Filter cases by id/name glob pattern (can be repeated)")
	f.BoolVar(&opts.parallel, "parallel", false, "Run cases concurrently")
	f.IntVar(&opts.workers, "workers", 0, "Number of concurrent workers (requires --parallel)")
	f.StringVarP(&opts.outputPath, "output", "o", "", "Output JSON file for results")
	f.StringVar(&opts.junitPath, "junit", "", "Write JUnit XML results to this file")
	f.StringVar(&opts.format, "format", "default", "Output format: default, github-comment")
	f.BoolVar(&opts.interpret, "interpret", false, "Print a plain-language interpretation of the results")
	f.BoolVar(&opts.enableCache, "cache", false, "Enable result caching")
	f.BoolVar(&opts.disableCache, "no-cache", false, "Disable result caching, even when .kcheck.yaml enables it")
	f.StringVar(&opts.cacheDir, "cache-dir", projectconfig.DefaultCacheDir, "Cache directory for storing results")
	f.StringVar(&opts.compiler, "compiler", compilerKotlinc, "Compiler to use: kotlinc, fake")
	f.StringVar(&opts.fakeDir, "fake-dir", "", "Directory of canned outputs for --compiler fake (default: <suite dir>/fake)")
	f.StringVar(&opts.transcriptDir, "transcript-dir", "", "Write a JSON transcript per case to this directory")
	f.StringVar(&opts.eventLog, "event-log", "", "Append run events as NDJSON to this file")
	f.StringVar(&opts.historyDB, "history", "", "Record the run in this SQLite history database")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output with compiler output and check results")

	return cmd
}

func runCommandE(cmd *cobra.Command, suiteArg string, opts *runOptions) error {
	if opts.format != "default" && opts.format != "github-comment" {
		return fmt.Errorf("unknown output format: %s (supported: default, github-comment)", opts.format)
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	projCfg, err := projectconfig.Load(wd)
	if err != nil {
		return err
	}

	suitePath := resolveSuitePath(projCfg, suiteArg)
	spec, err := models.LoadSuiteSpec(suitePath)
	if err != nil {
		return fmt.Errorf("failed to load suite: %w", err)
	}

	suiteDir, err := filepath.Abs(filepath.Dir(suitePath))
	if err != nil {
		return fmt.Errorf("resolving suite directory: %w", err)
	}

	flags := cmd.Flags()
	verbose := opts.verbose || derefBool(projCfg.Defaults.Verbose)

	cfgOpts := []config.Option{
		config.WithSuiteDir(suiteDir),
		config.WithVerbose(verbose),
		config.WithOutputPath(opts.outputPath),
		config.WithJUnitPath(opts.junitPath),
		config.WithCaseFilter(opts.caseFilters...),
		config.WithTranscriptDir(opts.transcriptDir),
	}
	if flags.Changed("parallel") {
		cfgOpts = append(cfgOpts, config.WithParallel(opts.parallel))
	} else if derefBool(projCfg.Defaults.Parallel) {
		cfgOpts = append(cfgOpts, config.WithParallel(true))
	}
	workers := opts.workers
	if workers <= 0 && spec.Config.Workers <= 0 {
		workers = projCfg.Defaults.Workers
	}
	cfgOpts = append(cfgOpts, config.WithWorkers(workers))

	kind := projCfg.Compiler.Kind
	if flags.Changed("compiler") || kind == "" {
		kind = opts.compiler
	}
	comp, settings, err := newCompiler(kind, projCfg, suiteDir, opts.fakeDir)
	if err != nil {
		return err
	}

	var runnerOpts []orchestration.RunnerOption
	if settings.PluginJar != "" {
		runnerOpts = append(runnerOpts, orchestration.WithPluginJar(settings.PluginJar))
	}

	useCache := (opts.enableCache || derefBool(projCfg.Cache.Enabled)) && !opts.disableCache
	if useCache {
		dir := opts.cacheDir
		if !flags.Changed("cache-dir") {
			dir = projCfg.Resolve(projCfg.Cache.Dir)
		}
		absCacheDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolving cache directory: %w", err)
		}
		cfgOpts = append(cfgOpts, config.WithCacheDir(absCacheDir))
		runnerOpts = append(runnerOpts, orchestration.WithCache(cache.New(absCacheDir), settings))
	}

	cfg := config.NewRunConfig(spec, cfgOpts...)
	runner := orchestration.NewRunner(cfg, comp, runnerOpts...)

	out := cmd.OutOrStdout()
	printer := newProgressPrinter(out)
	// github-comment output is meant to be piped, so keep stdout clean
	if opts.format == "default" {
		if verbose {
			runner.OnProgress(printer.verbose)
		} else {
			printer.spin = isTerminal(out) && !cfg.Parallel()
			runner.OnProgress(printer.simple)
		}

		fmt.Fprintf(out, "Running suite: %s\n", spec.Name)
		fmt.Fprintf(out, "Compiler: %s\n", comp.Name())
		if cfg.Parallel() {
			fmt.Fprintf(out, "Parallel: %d workers\n", cfg.Workers())
		}
		if cfg.CacheEnabled() {
			fmt.Fprintf(out, "Cache: %s\n", cfg.CacheDir())
		}
		fmt.Fprintln(out)
	}

	if opts.eventLog != "" {
		logger, err := openEventLog(opts.eventLog)
		if err != nil {
			return err
		}
		defer logger.Close() //nolint:errcheck
		runner.OnProgress(runlog.NewRecorder(logger, suitePath).Listen)
		if opts.format == "default" {
			fmt.Fprintf(out, "Event log: %s\n\n", logger.Path())
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	outcome, err := runner.Run(ctx)
	printer.stopSpinner()
	if err != nil {
		return fmt.Errorf("suite run failed: %w", err)
	}

	switch opts.format {
	case "github-comment":
		fmt.Fprint(out, reporting.FormatGitHubComment(outcome))
	default:
		printer.summary(outcome)
		if opts.interpret {
			fmt.Fprintln(out)
			fmt.Fprint(out, reporting.FormatSummaryReport(outcome))
		}
	}

	if err := writeReports(out, cfg, outcome); err != nil {
		return err
	}

	if dbPath := historyPath(projCfg, opts.historyDB); dbPath != "" {
		recordHistory(ctx, out, dbPath, outcome)
	}

	if outcome.Digest.Failed > 0 || outcome.Digest.Errors > 0 {
		return &TestFailureError{
			Message: fmt.Sprintf("suite completed with %d failed and %d error(s)", outcome.Digest.Failed, outcome.Digest.Errors),
		}
	}
	return nil
}

// resolveSuitePath falls back to the configured suites directory when p
// doesn't exist as given.
func resolveSuitePath(projCfg *projectconfig.ProjectConfig, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
		return p
	}

	candidate := projCfg.Resolve(filepath.Join(projCfg.Paths.Suites, p))
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return p
}

// historyPath returns the history database to record into, or "" when
// recording is off.
func historyPath(projCfg *projectconfig.ProjectConfig, flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if derefBool(projCfg.History.Enabled) {
		return projCfg.Resolve(projCfg.History.DB)
	}
	return ""
}

// recordHistory stores the run. A history failure never fails the run.
func recordHistory(ctx context.Context, out io.Writer, dbPath string, outcome *models.SuiteOutcome) {
	store, err := history.Open(dbPath)
	if err != nil {
		slog.Warn("failed to open run history", "path", dbPath, "error", err)
		return
	}
	defer store.Close() //nolint:errcheck

	if err := store.Record(ctx, outcome); err != nil {
		slog.Warn("failed to record run history", "path", dbPath, "error", err)
		return
	}
	fmt.Fprintf(out, "Run recorded in: %s\n", dbPath)
}

// openEventLog opens path for appending. A directory gets a new timestamped
// log inside it.
func openEventLog(path string) (*runlog.JSONLogger, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = runlog.DefaultLogPath(path, time.Now())
	}
	logger, err := runlog.NewJSONLogger(path)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return logger, nil
}

// newCompiler builds the compiler for kind and the settings that identify it
// in cache keys.
func newCompiler(kind string, projCfg *projectconfig.ProjectConfig, suiteDir, fakeDir string) (compiler.Compiler, cache.Settings, error) {
	switch kind {
	case compilerKotlinc:
		pluginJar := projCfg.Resolve(projCfg.Compiler.PluginJar)
		k, err := compiler.NewKotlincCompiler(compiler.KotlincOptions{
			Path:      projCfg.Resolve(projCfg.Compiler.Kotlinc),
			PluginJar: pluginJar,
			PluginID:  projCfg.Compiler.PluginID,
			Args:      projCfg.Compiler.Args,
			Timeout:   time.Duration(projCfg.Defaults.Timeout) * time.Second,
		})
		if err != nil {
			return nil, cache.Settings{}, err
		}
		return k, cache.Settings{
			Compiler:  k.Path(),
			PluginJar: pluginJar,
			Args:      projCfg.Compiler.Args,
		}, nil
	case compilerFake:
		dir := fakeDir
		if dir == "" {
			dir = projCfg.Resolve(projCfg.Compiler.FakeDir)
		}
		if dir == "" {
			dir = filepath.Join(suiteDir, "fake")
		}
		f, err := compiler.LoadFakeCompiler(dir)
		if err != nil {
			return nil, cache.Settings{}, fmt.Errorf("loading fake compiler outputs: %w", err)
		}
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return nil, cache.Settings{}, err
		}
		return f, cache.Settings{Compiler: compilerFake + ":" + absDir}, nil
	default:
		return nil, cache.Settings{}, fmt.Errorf("unknown compiler: %s (supported: %s, %s)", kind, compilerKotlinc, compilerFake)
	}
}

func writeReports(out io.Writer, cfg *config.RunConfig, outcome *models.SuiteOutcome) error {
	if p := cfg.OutputPath(); p != "" {
		if err := saveOutcome(outcome, p); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		fmt.Fprintf(out, "\nResults saved to: %s\n", p)
	}

	if p := cfg.JUnitPath(); p != "" {
		if err := reporting.WriteJUnitXML(outcome, p); err != nil {
			return fmt.Errorf("failed to write JUnit report: %w", err)
		}
		fmt.Fprintf(out, "JUnit report saved to: %s\n", p)
	}
	return nil
}

func saveOutcome(outcome *models.SuiteOutcome, path string) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
