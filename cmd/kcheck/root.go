package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kcheck",
		Short: "kcheck - verification harness for the detekt compiler plugin",
		Long: `kcheck compiles Kotlin sources with kotlinc and the detekt compiler plugin,
extracts the detekt run from the compiler output, and checks the reported
status and rule violations against expectations.

Suites describe cases as YAML; single compiler logs can be inspected with
"kcheck parse".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newParseCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newCacheCommand())
	cmd.AddCommand(newEventsCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newHistoryCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
