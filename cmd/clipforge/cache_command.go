package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clipforge/internal/artifactcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the artifact cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheSweepCommand(ctx))
	return cacheCmd
}

func (c *commandContext) layout() (*artifactcache.Layout, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return artifactcache.NewLayout(cfg.Paths.OutputDir, c.loggerFor())
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show artifact counts and sizes per stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := ctx.layout()
			if err != nil {
				return err
			}
			stats := make([]artifactcache.Stats, 0, 4)
			for _, cache := range layout.All() {
				s, err := cache.Stats()
				if err != nil {
					return err
				}
				stats = append(stats, s)
			}
			if asJSON {
				return writeJSON(cmd, stats)
			}

			rows := make([][]string, 0, len(stats))
			var total int64
			for _, s := range stats {
				total += s.TotalBytes
				rows = append(rows, []string{
					string(s.Kind),
					strconv.Itoa(s.Entries),
					humanize.IBytes(uint64(s.TotalBytes)),
					strconv.Itoa(s.TempFiles),
					s.Dir,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Stage", "Artifacts", "Size", "Temp", "Directory"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			if len(stats) > 0 {
				fmt.Fprintf(out, "Total %s; %s free on %s\n",
					humanize.IBytes(uint64(total)), humanize.IBytes(stats[0].FreeBytes), layout.Root)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove temp and lock files left by interrupted runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := ctx.layout()
			if err != nil {
				return err
			}
			var temps, locks int
			var freed int64
			for _, cache := range layout.All() {
				result, err := cache.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				temps += result.TempFiles
				locks += result.LockFiles
				freed += result.FreedBytes
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d temp files and %d lock files (%s freed)\n",
				temps, locks, humanize.IBytes(uint64(freed)))
			return nil
		},
	}
}
