// Package projectconfig provides the ProjectConfig struct and loader for
// .kcheck.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up from the working
// directory upwards.
const FileName = ".kcheck.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultSuitesDir  = "suites/"
	DefaultResultsDir = "results/"

	DefaultCompiler = "kotlinc"
	DefaultTimeout  = 120
	DefaultWorkers  = 4

	DefaultCacheDir = ".kcheck-cache"

	DefaultHistoryDB = ".kcheck-history.db"

	maxLookupDepth = 10
)

// PathsConfig holds directory paths for suites and results.
type PathsConfig struct {
	Suites  string `yaml:"suites,omitempty"`
	Results string `yaml:"results,omitempty"`
}

// CompilerConfig describes how kotlinc is invoked.
type CompilerConfig struct {
	// Kind is "kotlinc" or "fake".
	Kind      string   `yaml:"kind,omitempty"`
	Kotlinc   string   `yaml:"kotlinc,omitempty"`
	PluginJar string   `yaml:"plugin_jar,omitempty"`
	PluginID  string   `yaml:"plugin_id,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	// FakeDir holds canned outputs for the fake compiler.
	FakeDir string `yaml:"fake_dir,omitempty"`
}

// DefaultsConfig holds default execution parameters.
type DefaultsConfig struct {
	Timeout  int   `yaml:"timeout,omitempty"`
	Parallel *bool `yaml:"parallel,omitempty"`
	Workers  int   `yaml:"workers,omitempty"`
	Verbose  *bool `yaml:"verbose,omitempty"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// HistoryConfig controls recording of finished runs in a SQLite database.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	DB      string `yaml:"db,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .kcheck.yaml.
type ProjectConfig struct {
	Paths    PathsConfig    `yaml:"paths,omitempty"`
	Compiler CompilerConfig `yaml:"compiler,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	History  HistoryConfig  `yaml:"history,omitempty"`

	// dir is the directory the config file was found in; relative paths in
	// the file resolve against it.
	dir string
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Suites:  DefaultSuitesDir,
			Results: DefaultResultsDir,
		},
		Compiler: CompilerConfig{
			Kind: DefaultCompiler,
		},
		Defaults: DefaultsConfig{
			Timeout:  DefaultTimeout,
			Parallel: boolPtr(false),
			Workers:  DefaultWorkers,
			Verbose:  boolPtr(false),
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
		History: HistoryConfig{
			Enabled: boolPtr(false),
			DB:      DefaultHistoryDB,
		},
	}
}

// Load finds .kcheck.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	path, data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	mergeConfig(cfg, &fileCfg)
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Dir returns the directory holding the loaded config file, or "" when the
// defaults are in use.
func (c *ProjectConfig) Dir() string { return c.dir }

// Resolve makes p absolute relative to the config file's directory. Empty
// and absolute paths are returned unchanged.
func (c *ProjectConfig) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// findConfigFile walks up from dir looking for .kcheck.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) (string, []byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < maxLookupDepth; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Paths.Suites != "" {
		dst.Paths.Suites = src.Paths.Suites
	}
	if src.Paths.Results != "" {
		dst.Paths.Results = src.Paths.Results
	}

	if src.Compiler.Kind != "" {
		dst.Compiler.Kind = src.Compiler.Kind
	}
	if src.Compiler.Kotlinc != "" {
		dst.Compiler.Kotlinc = src.Compiler.Kotlinc
	}
	if src.Compiler.PluginJar != "" {
		dst.Compiler.PluginJar = src.Compiler.PluginJar
	}
	if src.Compiler.PluginID != "" {
		dst.Compiler.PluginID = src.Compiler.PluginID
	}
	if len(src.Compiler.Args) > 0 {
		dst.Compiler.Args = src.Compiler.Args
	}
	if src.Compiler.FakeDir != "" {
		dst.Compiler.FakeDir = src.Compiler.FakeDir
	}

	if src.Defaults.Timeout != 0 {
		dst.Defaults.Timeout = src.Defaults.Timeout
	}
	if src.Defaults.Parallel != nil {
		dst.Defaults.Parallel = src.Defaults.Parallel
	}
	if src.Defaults.Workers != 0 {
		dst.Defaults.Workers = src.Defaults.Workers
	}
	if src.Defaults.Verbose != nil {
		dst.Defaults.Verbose = src.Defaults.Verbose
	}

	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}

	if src.History.Enabled != nil {
		dst.History.Enabled = src.History.Enabled
	}
	if src.History.DB != "" {
		dst.History.DB = src.History.DB
	}
}

func boolPtr(b bool) *bool {
	return &b
}
