package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/detekt/kcheck/internal/cache"
	"github.com/detekt/kcheck/internal/projectconfig"
	"github.com/spf13/cobra"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the case result cache",
		Long: `Manage the case result cache.

The cache stores case outcomes to skip recompiling unchanged cases. Entries are
keyed by the case definition, its source contents, suite-wide checks and the
compiler settings, including the plugin jar's contents.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the case result cache",
		Long: `Clear all cached case outcomes.

The next run recompiles every case. The directory defaults to cache.dir from
.kcheck.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("cache-dir") {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				projCfg, err := projectconfig.Load(wd)
				if err != nil {
					return err
				}
				cacheDir = projCfg.Resolve(projCfg.Cache.Dir)
			}
			return clearCache(cmd, cacheDir)
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", projectconfig.DefaultCacheDir, "Cache directory to clear")

	return cmd
}

func clearCache(cmd *cobra.Command, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving cache directory: %w", err)
	}

	c := cache.New(absDir)
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir)
	return nil
}
