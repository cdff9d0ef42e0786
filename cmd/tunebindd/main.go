// Command tunebindd runs the acquisition worker and collection scheduler in
// the foreground until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tunebind/internal/config"
	"tunebind/internal/daemon"
)

func main() {
	if err := newDaemonCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newDaemonCommand() *cobra.Command {
	var configPath string
	var opts daemon.Options

	cmd := &cobra.Command{
		Use:           "tunebindd",
		Short:         "tunebind daemon: worker plus collection scheduler",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(strings.TrimSpace(configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemon.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&opts.NoScheduler, "no-scheduler", false, "Process the queue without polling collections")
	return cmd
}
