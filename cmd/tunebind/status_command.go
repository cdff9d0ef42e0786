package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tunebind/internal/config"
	"tunebind/internal/daemon"
	"tunebind/internal/preflight"
	"tunebind/internal/queue"
	"tunebind/internal/stage"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkNetwork bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withComponents(cmd, func(cfg *config.Config, store *queue.Store, c *daemon.Components) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				var lines []string

				lines = append(lines, renderSectionHeader("Daemon", colorize)...)
				running, err := daemon.HoldsLock(cfg)
				switch {
				case err != nil:
					lines = append(lines, renderStatusLine("tunebindd", statusWarn, err.Error(), colorize))
				case running:
					lines = append(lines, renderStatusLine("tunebindd", statusOK, "running", colorize))
				default:
					lines = append(lines, renderStatusLine("tunebindd", statusInfo, "not running", colorize))
				}
				lines = append(lines, renderStatusLine("Scheduler", statusInfo, schedulerSummary(cfg), colorize))

				summary := c.Worker.Status(cmd.Context())
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Queue", colorize)...)
				lines = append(lines, queueLines(summary.QueueStats, colorize)...)
				if active, err := store.List(cmd.Context(), queue.ListOptions{Statuses: queue.RunningStatuses(), Limit: 1}); err == nil && len(active) > 0 {
					job := active[0]
					lines = append(lines, renderStatusLine("Active job", statusInfo, fmt.Sprintf("#%d %s (%s)", job.ID, job.Label(), job.Status), colorize))
				}
				if failed, err := store.List(cmd.Context(), queue.ListOptions{Statuses: []queue.Status{queue.StatusFailed}, Limit: 1, Newest: true}); err == nil && len(failed) > 0 {
					job := failed[0]
					lines = append(lines, renderStatusLine("Last error", statusWarn, fmt.Sprintf("#%d %s", job.ID, orDash(job.LastError)), colorize))
				}

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Stages", colorize)...)
				for _, h := range summary.StageHealth {
					detail := h.Detail
					if detail == "" {
						detail = "ready"
					}
					lines = append(lines, renderStatusLine(h.Name, passKind(h.Ready), detail, colorize))
				}
				if !stage.AllReady(summary.StageHealth) {
					lines = append(lines, renderStatusLine("Worker", statusWarn, "jobs will fail until every stage is ready", colorize))
				}

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
				for _, dep := range preflight.CheckSystemDeps(cfg) {
					kind, detail := statusOK, dep.Resolved
					if !dep.Available {
						kind, detail = statusError, dep.Detail
						if dep.Optional {
							kind = statusWarn
						}
					}
					lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
				}
				for _, r := range preflight.RunAll(cmd.Context(), cfg) {
					lines = append(lines, renderStatusLine(r.Name, passKind(r.Passed), r.Detail, colorize))
				}
				notify := preflight.CheckNotificationsFromConfig(cfg)
				lines = append(lines, renderStatusLine(notify.Name, passKind(notify.Passed), notify.Detail, colorize))
				if checkNetwork {
					mb := preflight.CheckMusicBrainzFromConfig(cmd.Context(), cfg)
					lines = append(lines, renderStatusLine(mb.Name, passKind(mb.Passed), mb.Detail, colorize))
					sp := preflight.CheckSpotifyFromConfig(cmd.Context(), cfg)
					lines = append(lines, renderStatusLine(sp.Name, passKind(sp.Passed), sp.Detail, colorize))
				}

				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&checkNetwork, "check-network", false, "Also probe the MusicBrainz and Spotify endpoints")
	return cmd
}

func schedulerSummary(cfg *config.Config) string {
	if !cfg.Scheduler.Enabled {
		return "disabled"
	}
	enabled := 0
	for _, col := range cfg.Collections {
		if col.Enabled {
			enabled++
		}
	}
	return fmt.Sprintf("%d of %d collections enabled", enabled, len(cfg.Collections))
}

func queueLines(stats map[queue.Status]int, colorize bool) []string {
	lines := make([]string, 0, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		count := stats[status]
		kind := statusInfo
		if status == queue.StatusFailed && count > 0 {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(titleCase(string(status)), kind, strconv.Itoa(count), colorize))
	}
	return lines
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
