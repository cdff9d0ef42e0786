package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tunebind/internal/config"
	"tunebind/internal/queue"
	"tunebind/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and reclaim job work directories",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List directories under paths.staging_dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.List(cfg.Paths.StagingDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "Staging is empty")
				return nil
			}
			rows := make([][]string, 0, len(dirs))
			var total int64
			for _, d := range dirs {
				job := "-"
				if d.JobID > 0 {
					job = strconv.FormatInt(d.JobID, 10)
				}
				rows = append(rows, []string{d.Name, job, humanize.Bytes(uint64(d.Size)), humanize.Time(d.ModTime)})
				total += d.Size
			}
			fmt.Fprint(out, renderTable(
				[]string{"Directory", "Job", "Size", "Modified"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d directories, %s\n", len(dirs), humanize.Bytes(uint64(total)))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var stale string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove work directories of finished jobs",
		Long:  "Directories of queued or running jobs are always kept. --stale also removes\nany other directory not modified within the given age.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), queue.ListOptions{Statuses: queue.ActiveStatuses()})
				if err != nil {
					return err
				}
				active := make(map[int64]struct{}, len(jobs))
				for _, job := range jobs {
					active[job.ID] = struct{}{}
				}
				logger := ctx.logger(cmd)
				result := staging.CleanOrphaned(cmd.Context(), cfg.Paths.StagingDir, active, logger)
				if stale != "" {
					maxAge, err := parseAge(stale)
					if err != nil {
						return err
					}
					more := staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, maxAge, active, logger)
					result.Removed = append(result.Removed, more.Removed...)
					result.Errors = append(result.Errors, more.Errors...)
				}
				out := cmd.OutOrStdout()
				for _, path := range result.Removed {
					fmt.Fprintf(out, "Removed %s\n", path)
				}
				fmt.Fprintf(out, "Removed %d directories\n", len(result.Removed))
				if len(result.Errors) > 0 {
					first := result.Errors[0]
					return fmt.Errorf("%d directories could not be removed; first: %s: %w", len(result.Errors), first.Path, first.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stale, "stale", "", "Also remove untracked directories older than this age (e.g. 24h, 7d)")
	return cmd
}
