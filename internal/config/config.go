// Package config holds the per-run settings the CLI hands to the
// orchestrator.
package config

import (
	"github.com/detekt/kcheck/internal/models"
)

// RunConfig is built once per `kcheck run` with functional options and is
// read-only afterwards.
type RunConfig struct {
	suite         *models.SuiteSpec
	suiteDir      string
	verbose       bool
	outputPath    string
	junitPath     string
	transcriptDir string
	cacheDir      string
	caseGlobs     []string
	parallel      *bool
	workers       int
}

type Option func(*RunConfig)

func NewRunConfig(suite *models.SuiteSpec, opts ...Option) *RunConfig {
	cfg := &RunConfig{suite: suite}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithSuiteDir sets the directory file-backed sources resolve against.
func WithSuiteDir(dir string) Option {
	return func(c *RunConfig) { c.suiteDir = dir }
}

func WithVerbose(verbose bool) Option {
	return func(c *RunConfig) { c.verbose = verbose }
}

func WithOutputPath(path string) Option {
	return func(c *RunConfig) { c.outputPath = path }
}

func WithJUnitPath(path string) Option {
	return func(c *RunConfig) { c.junitPath = path }
}

// WithTranscriptDir makes the runner write one transcript file per case into
// dir.
func WithTranscriptDir(dir string) Option {
	return func(c *RunConfig) { c.transcriptDir = dir }
}

// WithCacheDir enables the result cache. An empty dir disables it.
func WithCacheDir(dir string) Option {
	return func(c *RunConfig) { c.cacheDir = dir }
}

// WithCaseFilter restricts the run to cases whose id or name matches one of
// the glob patterns.
func WithCaseFilter(globs ...string) Option {
	return func(c *RunConfig) { c.caseGlobs = append(c.caseGlobs, globs...) }
}

// WithParallel overrides the suite's parallel setting.
func WithParallel(parallel bool) Option {
	return func(c *RunConfig) { c.parallel = &parallel }
}

// WithWorkers overrides the suite's max_workers. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(c *RunConfig) { c.workers = n }
}

func (c *RunConfig) Suite() *models.SuiteSpec { return c.suite }
func (c *RunConfig) SuiteDir() string         { return c.suiteDir }
func (c *RunConfig) Verbose() bool            { return c.verbose }
func (c *RunConfig) OutputPath() string       { return c.outputPath }
func (c *RunConfig) JUnitPath() string        { return c.junitPath }
func (c *RunConfig) TranscriptDir() string    { return c.transcriptDir }
func (c *RunConfig) CacheDir() string         { return c.cacheDir }
func (c *RunConfig) CacheEnabled() bool       { return c.cacheDir != "" }
func (c *RunConfig) CaseFilter() []string     { return c.caseGlobs }

// Parallel reports whether cases run concurrently: the override when one was
// given, otherwise the suite's own setting.
func (c *RunConfig) Parallel() bool {
	if c.parallel != nil {
		return *c.parallel
	}
	return c.suite != nil && c.suite.Config.Concurrent
}

// Workers returns the concurrency limit for parallel runs, at least 1.
func (c *RunConfig) Workers() int {
	if c.workers > 0 {
		return c.workers
	}
	if c.suite != nil && c.suite.Config.Workers > 0 {
		return c.suite.Config.Workers
	}
	return 1
}
