package daemon

import (
	"fmt"
	"log/slog"

	"tunebind/internal/acquire"
	"tunebind/internal/binding"
	"tunebind/internal/config"
	"tunebind/internal/executor"
	"tunebind/internal/intake"
	"tunebind/internal/musicbrainz"
	"tunebind/internal/notifications"
	"tunebind/internal/organizer"
	"tunebind/internal/queue"
	"tunebind/internal/scheduler"
	"tunebind/internal/sources"
	"tunebind/internal/worker"
)

// Components is the wired object graph shared by the daemon and the CLI.
type Components struct {
	Notifier  notifications.Service
	Authority *musicbrainz.Client
	Resolver  *binding.Resolver
	Intake    *intake.Service
	Worker    *worker.Manager
	Scheduler *scheduler.Scheduler
}

// Build constructs every service over store. A nil notifier is replaced by
// one built from cfg.
func Build(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, opts ...worker.Option) (*Components, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, fmt.Errorf("build requires config, store, and logger")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	authority, err := musicbrainz.NewFromConfig(cfg.MusicBrainz, logger)
	if err != nil {
		return nil, fmt.Errorf("metadata authority: %w", err)
	}
	resolver := binding.NewFromConfig(cfg, authority, logger)
	svc := intake.New(cfg, store, resolver, notifier, logger)

	runner := executor.NewSubprocessRunner(nil, nil)
	exec := executor.New(cfg.Executor, runner, logger)
	search := sources.NewYTDLPSearch(cfg.Executor, runner, logger)
	stages := worker.Stages{
		Acquire:  acquire.NewDownloader(cfg, exec, search, logger),
		Organize: organizer.NewOrganizer(cfg, logger),
	}
	mgr := worker.NewManager(cfg, store, logger, stages, append([]worker.Option{worker.WithNotifier(notifier)}, opts...)...)
	sched := scheduler.New(cfg, store, svc, sources.NewRegistry(cfg), notifier, logger)

	return &Components{
		Notifier:  notifier,
		Authority: authority,
		Resolver:  resolver,
		Intake:    svc,
		Worker:    mgr,
		Scheduler: sched,
	}, nil
}
