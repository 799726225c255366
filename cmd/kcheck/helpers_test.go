package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/detekt/kcheck/internal/detektlog"
	"github.com/stretchr/testify/require"
)

const (
	magicLog = "w: warning: unused variable\n" +
		"i: Running detekt on module 'main'\n" +
		detektlog.ViolationPrefix + "MagicNumber - [main] at Magic.kt:1:28\n" +
		"i: Success?: false\n"
	cleanLog     = "i: Running detekt on module 'main'\ni: Success?: true\n"
	wildcardLog  = "i: Running detekt on module 'main'\n" + detektlog.ViolationPrefix + "WildcardImport - at Clean.kt:1:1\ni: Success?: false\n"
	testSuiteDoc = `name: style
config:
  timeout_seconds: 30
cases:
  - id: magic
    sources:
      - path: Magic.kt
        content: "fun main() { println(42) }"
    checks:
      - type: compilation
      - type: rule_violation
        config:
          rules: [MagicNumber]
  - id: clean
    name: clean file
    sources:
      - path: Clean.kt
        file: sources/Clean.kt
    checks:
      - type: no_violations
`
)

// writeSuite lays out a suite with canned fake compiler output and returns
// its directory. cleanOutput is the log replayed for the "clean" case.
func writeSuite(t *testing.T, cleanOutput string) string {
	t.Helper()
	dir := t.TempDir()

	writeTestFile(t, filepath.Join(dir, "suite.yaml"), testSuiteDoc)
	writeTestFile(t, filepath.Join(dir, "sources", "Clean.kt"), "fun clean() = Unit\n")
	writeTestFile(t, filepath.Join(dir, "fake", "magic.log"), magicLog)
	writeTestFile(t, filepath.Join(dir, "fake", "clean.log"), cleanOutput)
	return dir
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// executeCommand runs the root command with args and returns everything it
// printed.
func executeCommand(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}
