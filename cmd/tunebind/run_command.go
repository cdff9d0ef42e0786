package main

import (
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"tunebind/internal/config"
	"tunebind/internal/daemon"
	"tunebind/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process every ready job in the foreground, then exit",
		Long: "run takes the worker lock, recovers jobs orphaned by a previous worker, and\n" +
			"drains the queue. It refuses to start while tunebindd is running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire worker lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: tunebindd owns the queue; it will process ready jobs", daemon.ErrAlreadyRunning)
			}
			defer lock.Unlock()

			return ctx.withComponents(cmd, func(_ *config.Config, store *queue.Store, c *daemon.Components) error {
				if err := c.Worker.RecoverOrphans(cmd.Context()); err != nil {
					return fmt.Errorf("recover orphaned jobs: %w", err)
				}
				start := time.Now()
				processed, err := c.Worker.Drain(cmd.Context())
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Processed %d jobs in %s\n", processed, time.Since(start).Round(time.Millisecond))
				if err != nil {
					return err
				}
				health, herr := store.Health(cmd.Context())
				if herr != nil {
					return herr
				}
				fmt.Fprintf(out, "Queue: %d queued, %d completed, %d failed, %d cancelled\n",
					health.Queued, health.Completed, health.Failed, health.Cancelled)
				if health.Queued > 0 {
					fmt.Fprintln(out, "Remaining queued jobs are waiting on retry backoff")
				}
				return nil
			})
		},
	}
}
