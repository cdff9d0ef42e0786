package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"tunebind/internal/config"
	"tunebind/internal/deps"
	"tunebind/internal/logging"
	"tunebind/internal/preflight"
	"tunebind/internal/queue"
	"tunebind/internal/staging"
)

// PIDFileName is written under paths.data_dir while the daemon runs.
const PIDFileName = "tunebindd.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
	// NoScheduler runs the worker without polling collections.
	NoScheduler bool
}

// Run starts the daemon and blocks until SIGINT, SIGTERM, or ctx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if strings.TrimSpace(opts.LogLevel) != "" {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(opts.LogLevel))
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "tunebind*.log*", cfg.Logging.RetentionDays)

	if err := checkPrerequisites(signalCtx, logger, cfg); err != nil {
		return err
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	components, err := Build(cfg, store, logger, nil)
	if err != nil {
		_ = store.Close()
		return err
	}
	sched := components.Scheduler
	if opts.NoScheduler {
		sched = nil
	}
	d, err := New(cfg, store, logger, components.Worker, sched)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running instance and queue database access"),
		)
		return err
	}

	sweepStaging(signalCtx, logger, cfg, store)

	<-signalCtx.Done()
	logger.Info("tunebind daemon shutting down")
	return nil
}

// checkPrerequisites fails on unusable directories or missing required
// binaries and logs a dependency snapshot either way.
func checkPrerequisites(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	statuses := preflight.CheckSystemDeps(cfg)
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, st := range statuses {
		key := strings.ToLower(st.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", st.Available),
			logging.String(key+"_binary", st.Resolved),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	if missing := deps.Missing(statuses); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, st := range missing {
			names = append(names, fmt.Sprintf("%s (%s)", st.Name, st.Detail))
		}
		return fmt.Errorf("missing required binaries: %s", strings.Join(names, ", "))
	}
	if failed := preflight.Failed(preflight.RunAll(ctx, cfg)); len(failed) > 0 {
		for _, r := range failed {
			logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
			)
		}
		return fmt.Errorf("preflight failed: %s: %s", failed[0].Name, failed[0].Detail)
	}
	return nil
}

// sweepStaging removes work directories left by jobs that are no longer
// active. It runs under the daemon lock.
func sweepStaging(ctx context.Context, logger *slog.Logger, cfg *config.Config, store *queue.Store) {
	jobs, err := store.List(ctx, queue.ListOptions{Statuses: queue.ActiveStatuses()})
	if err != nil {
		logger.Warn("staging sweep skipped", logging.Error(err), logging.String(logging.FieldEventType, "staging_sweep_skipped"))
		return
	}
	active := make(map[int64]struct{}, len(jobs))
	for _, job := range jobs {
		active[job.ID] = struct{}{}
	}
	result := staging.CleanOrphaned(ctx, cfg.Paths.StagingDir, active, logger)
	if len(result.Removed) > 0 {
		logger.Info("staging sweep complete",
			logging.Int("removed", len(result.Removed)),
			logging.Int("errors", len(result.Errors)),
			logging.String(logging.FieldEventType, "staging_sweep"),
		)
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
