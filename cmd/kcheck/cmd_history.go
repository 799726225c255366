package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/detekt/kcheck/internal/history"
	"github.com/detekt/kcheck/internal/projectconfig"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query recorded run history",
		Long: `Query the run history database written by "kcheck run --history" (or by
every run when history is enabled in .kcheck.yaml).`,
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "History database (default: history.db from .kcheck.yaml)")

	open := func() (*history.Store, error) {
		path := dbPath
		if path == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			projCfg, err := projectconfig.Load(wd)
			if err != nil {
				return nil, err
			}
			path = projCfg.Resolve(projCfg.History.DB)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("history database %s: %w", path, err)
		}
		return history.Open(path)
	}

	cmd.AddCommand(newHistoryRunsCommand(open))
	cmd.AddCommand(newHistoryCaseCommand(open))
	cmd.AddCommand(newHistoryFlakyCommand(open))
	cmd.AddCommand(newHistoryPurgeCommand(open))

	return cmd
}

type openHistoryFunc func() (*history.Store, error)

func newHistoryRunsCommand(open openHistoryFunc) *cobra.Command {
	var (
		suite string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			runs, err := store.Runs(cmd.Context(), suite, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			fmt.Fprintf(out, "%-10s %-20s %-19s %6s %6s %6s %6s %7s\n", "Run", "Suite", "Started", "Cases", "Pass", "Fail", "Error", "Rate")
			fmt.Fprintln(out, strings.Repeat("─", 88))
			for _, r := range runs {
				fmt.Fprintf(out, "%-10s %s %-19s %6d %6d %6d %6d %6.1f%%\n",
					shortID(r.RunID),
					runewidth.FillRight(runewidth.Truncate(r.SuiteName, 20, "…"), 20),
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.Total, r.Succeeded, r.Failed, r.Errors, r.SuccessRate*100)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&suite, "suite", "", "Only show runs of this suite")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show (0 for all)")

	return cmd
}

func newHistoryCaseCommand(open openHistoryFunc) *cobra.Command {
	var (
		suite string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "case <case-id>",
		Short: "Show the results of one case across runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			records, err := store.CaseHistory(cmd.Context(), suite, args[0], limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "No results recorded for case %q.\n", args[0])
				return nil
			}
			printCaseHistory(out, records)
			return nil
		},
	}

	cmd.Flags().StringVar(&suite, "suite", "", "Only show runs of this suite")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results to show (0 for all)")

	return cmd
}

func printCaseHistory(out io.Writer, records []history.CaseRecord) {
	fmt.Fprintf(out, "Case: %s\n\n", records[0].CaseID)
	fmt.Fprintf(out, "%-10s %-19s %-8s %10s %9s  %s\n", "Run", "Started", "Status", "Violations", "Duration", "Rules")
	fmt.Fprintln(out, strings.Repeat("─", 88))
	for _, r := range records {
		violations := "-"
		if r.ViolationCount >= 0 {
			violations = fmt.Sprintf("%d", r.ViolationCount)
		}
		detail := strings.Join(r.Violations, ", ")
		if r.ErrorMsg != "" {
			detail = r.ErrorMsg
		}
		status := string(r.Status)
		if r.Cached {
			status += "*"
		}
		fmt.Fprintf(out, "%-10s %-19s %-8s %10s %8dms  %s\n",
			shortID(r.RunID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status, violations, r.DurationMs,
			runewidth.Truncate(detail, 40, "…"))
	}
}

func newHistoryFlakyCommand(open openHistoryFunc) *cobra.Command {
	var window int

	cmd := &cobra.Command{
		Use:   "flaky <suite-name>",
		Short: "List cases that both passed and failed in recent runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			flaky, err := store.Flaky(cmd.Context(), args[0], window)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(flaky) == 0 {
				fmt.Fprintf(out, "No flaky cases in the last %d runs of %s.\n", window, args[0])
				return nil
			}

			fmt.Fprintf(out, "%-30s %6s %6s %6s\n", "Case", "Runs", "Pass", "Fail")
			fmt.Fprintln(out, strings.Repeat("─", 51))
			for _, f := range flaky {
				fmt.Fprintf(out, "%s %6d %6d %6d\n",
					runewidth.FillRight(runewidth.Truncate(f.CaseID, 30, "…"), 30), f.Runs, f.Passed, f.Failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&window, "window", 10, "Number of recent runs to inspect")

	return cmd
}

func newHistoryPurgeCommand(open openHistoryFunc) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete runs older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}

			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			n, err := store.Purge(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d run(s).\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Delete runs started longer ago than this")

	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
