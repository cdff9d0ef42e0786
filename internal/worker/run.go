package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tunebind/internal/logging"
)

// Start recovers orphaned jobs and begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("worker already running")
	}
	if !m.configured() {
		m.mu.Unlock()
		return errors.New("worker stages not configured")
	}
	m.running = true
	m.mu.Unlock()

	if err := m.RecoverOrphans(ctx); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go m.loop(runCtx)
	return nil
}

// Stop terminates background processing and waits for the current job to
// unwind. An interrupted job stays running in the store and is recovered on
// the next start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// RecoverOrphans requeues jobs left running by any other worker. It must run
// before the first claim.
func (m *Manager) RecoverOrphans(ctx context.Context) error {
	result, err := m.store.RecoverOrphans(ctx, m.workerID)
	if err != nil {
		m.setLastError(err)
		return err
	}
	if result.Requeued+result.Failed > 0 {
		m.logger.Info("recovered orphaned jobs",
			logging.Int("requeued", result.Requeued),
			logging.Int("failed", result.Failed),
			logging.Any("job_ids", result.JobIDs),
			logging.String(logging.FieldEventType, "orphan_recovery"),
		)
	}
	return nil
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()
	logger := m.logger.With(logging.String(logging.FieldWorkerID, m.workerID))
	logger.Info("worker started", logging.String(logging.FieldEventType, "worker_start"))
	defer logger.Info("worker stopped", logging.String(logging.FieldEventType, "worker_stop"))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		processed, err := m.RunOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleLoopError(ctx, logger, err)
			continue
		}
		if !processed {
			m.waitOrShutdown(ctx, m.pollInterval)
		}
	}
}

// RunOnce claims and processes at most one job. It reports whether a job
// was claimed. Job failures are recorded in the store and do not surface
// here; only store and shutdown errors do.
func (m *Manager) RunOnce(ctx context.Context) (bool, error) {
	if !m.configured() {
		return false, errors.New("worker stages not configured")
	}
	job, err := m.store.ClaimNext(ctx, m.workerID)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	return true, m.process(ctx, job)
}

// Drain processes jobs until none are ready or ctx ends.
func (m *Manager) Drain(ctx context.Context) (int, error) {
	count := 0
	for {
		processed, err := m.RunOnce(ctx)
		if err != nil {
			return count, err
		}
		if !processed {
			return count, nil
		}
		count++
	}
}

func (m *Manager) handleLoopError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("worker iteration failed",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.waitOrShutdown(ctx, m.errorRetryInterval)
}

func (m *Manager) waitOrShutdown(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
