package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tunebind/internal/config"
	"tunebind/internal/queue"
)

func newFailuresCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List intents that could not be bound to a canonical release",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				failures, err := store.BindingFailures(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(failures) == 0 {
					fmt.Fprintln(out, "No binding failures recorded")
					return nil
				}
				rows := make([][]string, 0, len(failures))
				for _, f := range failures {
					rows = append(rows, []string{
						formatTime(f.CreatedAt),
						orDash(f.Artist),
						orDash(f.Title),
						orDash(f.Album),
						f.Reason,
						string(f.Origin),
						orDash(f.BatchID),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"At", "Artist", "Title", "Album", "Reason", "Origin", "Batch"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum failures to show")
	return cmd
}
