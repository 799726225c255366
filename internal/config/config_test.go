package config

import (
	"testing"

	"github.com/detekt/kcheck/internal/models"
	"github.com/stretchr/testify/require"
)

func TestNewRunConfig_DefaultValues(t *testing.T) {
	suite := &models.SuiteSpec{SpecIdentity: models.SpecIdentity{Name: "style"}}

	cfg := NewRunConfig(suite)

	require.Same(t, suite, cfg.Suite())
	require.Empty(t, cfg.SuiteDir())
	require.False(t, cfg.Verbose())
	require.Empty(t, cfg.OutputPath())
	require.Empty(t, cfg.JUnitPath())
	require.Empty(t, cfg.TranscriptDir())
	require.Empty(t, cfg.CacheDir())
	require.False(t, cfg.CacheEnabled())
	require.Empty(t, cfg.CaseFilter())
	require.False(t, cfg.Parallel())
	require.Equal(t, 1, cfg.Workers())
}

func TestNewRunConfig_AppliesFunctionalOptions(t *testing.T) {
	cfg := NewRunConfig(
		&models.SuiteSpec{},
		WithSuiteDir("/tmp/suites"),
		WithVerbose(true),
		WithOutputPath("results.json"),
		WithJUnitPath("junit.xml"),
		WithTranscriptDir("transcripts"),
		WithCacheDir(".kcheck-cache"),
		WithCaseFilter("magic-*"),
		WithCaseFilter("wildcard-*"),
		WithParallel(true),
		WithWorkers(6),
	)

	require.Equal(t, "/tmp/suites", cfg.SuiteDir())
	require.True(t, cfg.Verbose())
	require.Equal(t, "results.json", cfg.OutputPath())
	require.Equal(t, "junit.xml", cfg.JUnitPath())
	require.Equal(t, "transcripts", cfg.TranscriptDir())
	require.Equal(t, ".kcheck-cache", cfg.CacheDir())
	require.True(t, cfg.CacheEnabled())
	require.Equal(t, []string{"magic-*", "wildcard-*"}, cfg.CaseFilter())
	require.True(t, cfg.Parallel())
	require.Equal(t, 6, cfg.Workers())
}

func TestSuiteSettingsApplyWithoutOverride(t *testing.T) {
	suite := &models.SuiteSpec{Config: models.SuiteConfig{Concurrent: true, Workers: 3}}

	cfg := NewRunConfig(suite)
	require.True(t, cfg.Parallel())
	require.Equal(t, 3, cfg.Workers())

	cfg = NewRunConfig(suite, WithParallel(false), WithWorkers(0))
	require.False(t, cfg.Parallel())
	require.Equal(t, 3, cfg.Workers())
}

func TestOptionOrder_LastOptionWins(t *testing.T) {
	cfg := NewRunConfig(
		&models.SuiteSpec{},
		WithVerbose(true),
		WithVerbose(false),
		WithCacheDir("first"),
		WithCacheDir(""),
	)

	require.False(t, cfg.Verbose())
	require.False(t, cfg.CacheEnabled())
}

func TestNewRunConfig_NilSuiteAllowed(t *testing.T) {
	cfg := NewRunConfig(nil, WithOutputPath(""))

	require.Nil(t, cfg.Suite())
	require.False(t, cfg.Parallel())
	require.Equal(t, 1, cfg.Workers())
}

func TestNewRunConfig_NilOptionPanics(t *testing.T) {
	require.Panics(t, func() {
		_ = NewRunConfig(&models.SuiteSpec{}, nil)
	})
}
