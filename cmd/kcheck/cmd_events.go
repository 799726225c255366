package main

import (
	"fmt"
	"path/filepath"

	"github.com/detekt/kcheck/internal/runlog"
	"github.com/spf13/cobra"
)

func newEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "View recorded run event logs",
		Long: `View run event logs.

Event logs are NDJSON files written by "kcheck run --event-log". They record
the run lifecycle: run start, each case with its check results, errors and
the final tally.`,
	}

	cmd.AddCommand(newEventsListCommand())
	cmd.AddCommand(newEventsViewCommand())

	return cmd
}

func newEventsListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List run event logs in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			files, err := runlog.ListLogs(absDir)
			if err != nil {
				return fmt.Errorf("listing event logs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "No event logs found.")
				return nil
			}

			fmt.Fprintf(out, "%-40s %-8s %s\n", "File", "Events", "Modified")
			fmt.Fprintln(out, "─────────────────────────────────────────────────────────────────")
			for _, f := range files {
				fmt.Fprintf(out, "%-40s %-8d %s\n", f.Name, f.NumEvents, f.ModTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to search for event logs")

	return cmd
}

func newEventsViewCommand() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "view <event-log>",
		Short: "Print the timeline of a run event log",
		Long: `Print the timeline of a run event log.

A log that several runs appended to shows all of them; --run selects one
run by id or id prefix.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := runlog.ReadEvents(args[0])
			if err != nil {
				return fmt.Errorf("reading event log: %w", err)
			}

			if runID != "" {
				if events, err = runlog.FilterRun(events, runID); err != nil {
					return err
				}
			}

			runlog.RenderTimeline(cmd.OutOrStdout(), events)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Only show the run with this id (or id prefix)")

	return cmd
}
