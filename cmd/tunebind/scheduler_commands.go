package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tunebind/internal/config"
	"tunebind/internal/daemon"
	"tunebind/internal/queue"
	"tunebind/internal/scheduler"
)

func newSchedulerCommand(ctx *commandContext) *cobra.Command {
	schedCmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Inspect and tick watched collections",
	}

	schedCmd.AddCommand(newSchedulerListCommand(ctx))
	schedCmd.AddCommand(newSchedulerTickCommand(ctx))

	return schedCmd
}

func newSchedulerListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured collections and their last snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if len(cfg.Collections) == 0 {
					fmt.Fprintln(out, "No collections configured")
					return nil
				}
				rows := make([][]string, 0, len(cfg.Collections))
				for _, col := range cfg.Collections {
					items, updated := "-", "-"
					snap, err := store.Snapshot(cmd.Context(), col.ID)
					if err != nil {
						return err
					}
					if snap != nil {
						items = strconv.Itoa(len(snap.ItemIDs))
						updated = formatTime(snap.UpdatedAt)
					}
					rows = append(rows, []string{
						col.ID,
						col.Source,
						col.MediaType,
						fmt.Sprintf("%ds", col.Interval),
						yesNo(col.Enabled),
						items,
						updated,
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Collection", "Source", "Media", "Interval", "Enabled", "Items", "Snapshot"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newSchedulerTickCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tick [collection...]",
		Short: "Poll collections now and enqueue new items",
		Long:  "Without arguments every enabled collection is ticked. Disabled collections can be ticked by name.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withComponents(cmd, func(cfg *config.Config, _ *queue.Store, c *daemon.Components) error {
				ids := args
				if len(ids) == 0 {
					for _, col := range cfg.Collections {
						if col.Enabled {
							ids = append(ids, col.ID)
						}
					}
				}
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					fmt.Fprintln(out, "No enabled collections")
					return nil
				}

				var summaries []scheduler.RunSummary
				var errs []error
				for _, id := range ids {
					summary, err := c.Scheduler.Tick(cmd.Context(), id)
					if err != nil {
						errs = append(errs, fmt.Errorf("collection %s: %w", id, err))
						continue
					}
					summaries = append(summaries, summary)
				}
				if len(summaries) > 0 {
					fmt.Fprint(out, renderTable(
						[]string{"Collection", "Added", "Removed", "Skipped", "Completed", "Failed", "Changed"},
						buildTickRows(summaries),
						[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
					))
				}
				return errors.Join(errs...)
			})
		},
	}
}

func buildTickRows(summaries []scheduler.RunSummary) [][]string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.CollectionID,
			strconv.Itoa(s.Added),
			strconv.Itoa(s.Removed),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.Completed),
			strconv.Itoa(s.Failed),
			yesNo(!s.Unchanged),
		})
	}
	return rows
}
