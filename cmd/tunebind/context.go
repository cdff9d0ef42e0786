package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tunebind/internal/config"
	"tunebind/internal/daemon"
	"tunebind/internal/logging"
	"tunebind/internal/queue"
)

// cliLogLevel keeps routine info lines off the terminal unless asked for.
const cliLogLevel = "warn"

// skipConfigAnnotation marks commands that run before a config file exists.
const skipConfigAnnotation = "skipConfigLoad"

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, resolved, exists, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag != nil {
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			return level
		}
	}
	return cliLogLevel
}

// logger writes console logs to the command's stderr. CLI runs never append
// to the daemon log file.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	logger, err := logging.New(logging.Options{
		Level:  c.logLevel(),
		Format: "console",
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) withStore(fn func(*config.Config, *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func (c *commandContext) withComponents(cmd *cobra.Command, fn func(*config.Config, *queue.Store, *daemon.Components) error) error {
	return c.withStore(func(cfg *config.Config, store *queue.Store) error {
		components, err := daemon.Build(cfg, store, c.logger(cmd), nil)
		if err != nil {
			return err
		}
		return fn(cfg, store, components)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
