package models

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/detekt/kcheck/internal/hooks"
	"gopkg.in/yaml.v3"
)

// DefaultCaseTimeoutSec applies when a suite doesn't set timeout_seconds.
// kotlinc startup alone takes several seconds on a cold JVM.
const DefaultCaseTimeoutSec = 120

// SuiteSpec represents a complete kcheck suite file
type SuiteSpec struct {
	SpecIdentity `yaml:",inline"`
	Config       SuiteConfig       `yaml:"config"`
	Hooks        hooks.HooksConfig `yaml:"hooks,omitempty"`
	// Checks are applied to every case, before the case's own checks.
	Checks []CheckConfig `yaml:"checks,omitempty"`
	Cases  []CaseSpec    `yaml:"cases"`
}

type SpecIdentity struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// SuiteConfig controls execution behavior
type SuiteConfig struct {
	TimeoutSec    int               `yaml:"timeout_seconds" json:"timeout_sec"`
	Concurrent    bool              `yaml:"parallel" json:"concurrent"`
	Workers       int               `yaml:"max_workers,omitempty" json:"workers,omitempty"`
	StopOnError   bool              `yaml:"fail_fast,omitempty" json:"stop_on_error,omitempty"`
	CompilerArgs  []string          `yaml:"compiler_args,omitempty" json:"compiler_args,omitempty"`
	PluginOptions map[string]string `yaml:"plugin_options,omitempty" json:"plugin_options,omitempty"`
}

// CaseSpec is one compile-and-assert case.
type CaseSpec struct {
	CaseID      string        `yaml:"id" json:"id"`
	DisplayName string        `yaml:"name,omitempty" json:"name,omitempty"`
	Tags        []string      `yaml:"tags,omitempty" json:"tags,omitempty"`
	Sources     []SourceSpec  `yaml:"sources" json:"sources"`
	Checks      []CheckConfig `yaml:"checks,omitempty" json:"checks,omitempty"`
}

// SourceSpec is a Kotlin source file, given inline or as a path relative to
// the suite file.
type SourceSpec struct {
	Path    string `yaml:"path" json:"path"`
	Content string `yaml:"content,omitempty" json:"content,omitempty"`
	File    string `yaml:"file,omitempty" json:"file,omitempty"`
}

// SourceFile is a resolved source ready to be written into a compiler
// workspace.
type SourceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// CheckConfig defines a check
type CheckConfig struct {
	Kind       CheckKind      `yaml:"type" json:"kind"`
	Identifier string         `yaml:"name,omitempty" json:"identifier,omitempty"`
	Parameters map[string]any `yaml:"config,omitempty" json:"parameters,omitempty"`
}

// LoadSuiteSpec loads a suite from a YAML file
func LoadSuiteSpec(path string) (*SuiteSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec SuiteSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}

	if spec.Config.TimeoutSec == 0 {
		spec.Config.TimeoutSec = DefaultCaseTimeoutSec
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

// Validate checks that the suite is well formed
func (s *SuiteSpec) Validate() error {
	if s.Config.TimeoutSec < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", s.Config.TimeoutSec)
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("suite '%s' has no cases", s.Name)
	}

	seen := make(map[string]bool, len(s.Cases))
	for i := range s.Cases {
		c := &s.Cases[i]
		if c.CaseID == "" {
			return fmt.Errorf("case #%d has no id", i+1)
		}
		if seen[c.CaseID] {
			return fmt.Errorf("duplicate case id '%s'", c.CaseID)
		}
		seen[c.CaseID] = true

		if len(c.Sources) == 0 {
			return fmt.Errorf("case '%s' has no sources", c.CaseID)
		}
		for _, src := range c.Sources {
			if src.Path == "" {
				return fmt.Errorf("case '%s' has a source without a path", c.CaseID)
			}
			if src.Content != "" && src.File != "" {
				return fmt.Errorf("case '%s' source '%s' sets both content and file", c.CaseID, src.Path)
			}
		}

		for _, ch := range c.Checks {
			if ch.Kind == "" {
				return fmt.Errorf("case '%s' has a check without a type", c.CaseID)
			}
		}
	}

	for _, ch := range s.Checks {
		if ch.Kind == "" {
			return fmt.Errorf("suite '%s' has a check without a type", s.Name)
		}
	}

	return nil
}

// Name returns the display name, falling back to the case id.
func (c *CaseSpec) Name() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.CaseID
}

// ResolveSources returns the case's sources with file-backed entries read
// relative to baseDir.
func (c *CaseSpec) ResolveSources(baseDir string) ([]SourceFile, error) {
	files := make([]SourceFile, 0, len(c.Sources))
	for _, src := range c.Sources {
		content := src.Content
		if src.File != "" {
			p := src.File
			if !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, p)
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("reading source '%s' for case '%s': %w", src.File, c.CaseID, err)
			}
			content = string(data)
		}
		files = append(files, SourceFile{Path: src.Path, Content: content})
	}
	return files, nil
}
