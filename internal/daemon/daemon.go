package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"tunebind/internal/config"
	"tunebind/internal/logging"
	"tunebind/internal/queue"
	"tunebind/internal/scheduler"
	"tunebind/internal/worker"
)

// ErrAlreadyRunning reports that another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another tunebind daemon instance is already running")

// Daemon coordinates the worker and scheduler and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	worker    *worker.Manager
	scheduler *scheduler.Scheduler

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running          bool
	SchedulerEnabled bool
	Worker           worker.StatusSummary
	QueueDBPath      string
	LockFilePath     string
}

// New constructs a daemon. sched may be nil to run the worker alone.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, mgr *worker.Manager, sched *scheduler.Scheduler) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || mgr == nil {
		return nil, errors.New("daemon requires config, store, logger, and worker manager")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		worker:    mgr,
		scheduler: sched,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, then launches the worker and, when
// enabled, the scheduler loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.worker.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start worker: %w", err)
	}
	d.cancel = cancel

	if d.schedulerEnabled() {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.scheduler.Loop(runCtx); err != nil {
				logging.ErrorWithContext(d.logger, "scheduler loop exited", "scheduler_loop_failed", logging.Error(err))
			}
		}()
	}

	d.running.Store(true)
	d.logger.Info("tunebind daemon started",
		logging.String("lock", d.lockPath),
		logging.String("worker_id", d.worker.WorkerID()),
		logging.Bool("scheduler", d.schedulerEnabled()),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock. An
// in-flight job is left for orphan recovery on the next start.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.worker.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("tunebind daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:          d.running.Load(),
		SchedulerEnabled: d.schedulerEnabled(),
		Worker:           d.worker.Status(ctx),
		QueueDBPath:      d.cfg.QueueDBPath(),
		LockFilePath:     d.lockPath,
	}
}

func (d *Daemon) schedulerEnabled() bool {
	return d.scheduler != nil && d.cfg.Scheduler.Enabled
}

// HoldsLock reports whether a daemon currently owns the lock for cfg. It
// briefly takes and releases the lock when nobody holds it.
func HoldsLock(cfg *config.Config) (bool, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	return false, lock.Unlock()
}
