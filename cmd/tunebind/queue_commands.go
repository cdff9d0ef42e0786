package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tunebind/internal/config"
	"tunebind/internal/intake"
	"tunebind/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage acquisition jobs",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueCancelCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), queue.ListOptions{Statuses: statuses, Limit: limit, Newest: true})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Item", "Kind", "Status", "Attempts", "Origin", "Updated"},
					buildQueueListRows(jobs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum jobs to show (0 for all)")
	return cmd
}

func buildQueueListRows(jobs []*queue.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.Label(),
			string(job.MediaKind),
			string(job.Status),
			fmt.Sprintf("%d/%d", job.Attempts, job.MaxAttempts),
			string(job.Origin),
			formatTime(job.UpdatedAt),
		})
	}
	return rows
}

func parseStatuses(values []string) ([]queue.Status, error) {
	var out []queue.Status
	for _, raw := range values {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			names := make([]string, 0, len(queue.AllStatuses()))
			for _, s := range queue.AllStatuses() {
				names = append(names, string(s))
			}
			return nil, fmt.Errorf("unknown status %q (valid: %s)", raw, strings.Join(names, ", "))
		}
		out = append(out, status)
	}
	return out, nil
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job and its state history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				svc := intake.New(cfg, store, nil, nil, ctx.logger(cmd))
				status, err := svc.JobStatus(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job %d: %s\n", status.ID, status.Label)
				fmt.Fprintf(out, "  Key:       %s\n", status.CanonicalKey)
				fmt.Fprintf(out, "  Status:    %s\n", status.Status)
				fmt.Fprintf(out, "  Attempts:  %d/%d\n", status.Attempts, status.MaxAttempts)
				fmt.Fprintf(out, "  Updated:   %s\n", formatTime(status.UpdatedAt))
				if status.OutputPath != "" {
					fmt.Fprintf(out, "  Output:    %s\n", status.OutputPath)
				}
				if status.FailureReason != "" {
					fmt.Fprintf(out, "  Reason:    %s\n", status.FailureReason)
				}
				if status.LastError != "" {
					fmt.Fprintf(out, "  Error:     %s\n", status.LastError)
				}

				events, err := store.Events(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(events))
				for _, ev := range events {
					rows = append(rows, []string{formatTime(ev.CreatedAt), orDash(string(ev.From)), string(ev.To), ev.Detail})
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, renderTable(
					[]string{"At", "From", "To", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newQueueCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a queued job or flag a running one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				svc := intake.New(cfg, store, nil, nil, ctx.logger(cmd))
				status, err := svc.CancelJob(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if status == queue.StatusCancelled {
					fmt.Fprintf(out, "Job %d cancelled\n", id)
				} else {
					fmt.Fprintf(out, "Cancellation requested for job %d (currently %s)\n", id, status)
				}
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Enqueue a fresh copy of a failed or cancelled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				svc := intake.New(cfg, store, nil, nil, ctx.logger(cmd))
				res, err := svc.RetryJob(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if res.Created {
					fmt.Fprintf(out, "Retried job %d as job %d\n", id, res.Job.ID)
				} else {
					fmt.Fprintf(out, "Job %d is already covered by job %d (%s)\n", id, res.Job.ID, res.Job.Status)
				}
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the queue database schema and integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				lines := renderSectionHeader("Queue database", colorize)
				lines = append(lines,
					renderStatusLine("Path", statusInfo, health.DBPath, colorize),
					renderStatusLine("Readable", passKind(health.DatabaseReadable), yesNo(health.DatabaseReadable), colorize),
					renderStatusLine("Schema version", statusInfo, strconv.Itoa(health.SchemaVersion), colorize),
					renderStatusLine("Jobs table", passKind(health.TableExists), yesNo(health.TableExists), colorize),
					renderStatusLine("Integrity", passKind(health.IntegrityCheck), yesNo(health.IntegrityCheck), colorize),
					renderStatusLine("Total jobs", statusInfo, strconv.Itoa(health.TotalJobs), colorize),
				)
				if len(health.MissingColumns) > 0 {
					lines = append(lines, renderStatusLine("Missing columns", statusError, strings.Join(health.MissingColumns, ", "), colorize))
				}
				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return err
			})
		},
	}
}
