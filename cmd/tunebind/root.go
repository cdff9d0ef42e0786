package main

import (
	"github.com/spf13/cobra"
)

const (
	groupAcquire  = "acquire"
	groupInspect  = "inspect"
	groupMaintain = "maintain"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:   "tunebind",
		Short: "Bind tracks to canonical releases and acquire them",
		Long: "tunebind resolves searches, imports, albums, and watched playlists to\n" +
			"MusicBrainz recordings and releases, then queues them for tunebindd to\n" +
			"download, tag, and file under the library.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level for this invocation (debug, info, warn, error)")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupAcquire, Title: "Acquisition:"},
		&cobra.Group{ID: groupInspect, Title: "Inspection:"},
		&cobra.Group{ID: groupMaintain, Title: "Maintenance:"},
	)
	add := func(group string, cmds ...*cobra.Command) {
		for _, c := range cmds {
			c.GroupID = group
			rootCmd.AddCommand(c)
		}
	}
	add(groupAcquire, newEnqueueCommand(ctx), newSchedulerCommand(ctx), newRunCommand(ctx))
	add(groupInspect, newQueueCommand(ctx), newStatusCommand(ctx), newFailuresCommand(ctx), newLogsCommand(ctx), newBenchCommand(ctx))
	add(groupMaintain, newStagingCommand(ctx), newConfigCommand(ctx))

	return rootCmd
}
