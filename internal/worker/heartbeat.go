package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tunebind/internal/logging"
	"tunebind/internal/queue"
)

// errCancelRequested is the cause set on a job context when an operator asked
// for the job to be cancelled.
var errCancelRequested = errors.New("cancel requested")

// HeartbeatMonitor keeps running jobs alive and reclaims stale ones.
type HeartbeatMonitor struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:    store,
		logger:   logger.With(logging.String(logging.FieldComponent, "worker-heartbeat")),
		interval: interval,
		timeout:  timeout,
	}
}

// ReclaimStale returns jobs whose heartbeat is older than the timeout to the
// queue.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context, logger *slog.Logger) error {
	if h.timeout <= 0 {
		return nil
	}
	result, err := h.store.ReclaimStale(ctx, time.Now().Add(-h.timeout))
	if err != nil {
		return err
	}
	if n := result.Requeued + result.Failed; n > 0 {
		logger.Info("reclaimed stale jobs",
			logging.Int("requeued", result.Requeued),
			logging.Int("failed", result.Failed),
			logging.Any("job_ids", result.JobIDs),
			logging.String(logging.FieldEventType, "heartbeat_reclaim"),
		)
	}
	return nil
}

// Run refreshes the lease of jobID every interval until ctx ends. A lost lease
// or a pending cancel request interrupts the job through interrupt.
func (h *HeartbeatMonitor) Run(ctx context.Context, wg *sync.WaitGroup, jobID int64, workerID string, interrupt context.CancelCauseFunc) {
	defer wg.Done()
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, jobID, workerID); err != nil {
				switch {
				case errors.Is(err, queue.ErrLeaseLost):
					logger.Warn("job lease lost; interrupting",
						logging.String(logging.FieldEventType, "lease_lost"),
						logging.String(logging.FieldImpact, "job result will be discarded"),
					)
					interrupt(err)
					return
				case errors.Is(err, context.Canceled):
					return
				default:
					logger.Warn("heartbeat update failed", logging.Error(err))
					continue
				}
			}
			requested, err := h.store.CancelRequested(ctx, jobID)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Warn("cancel flag check failed", logging.Error(err))
				}
				continue
			}
			if requested {
				logger.Info("cancel requested; interrupting job",
					logging.String(logging.FieldEventType, "cancel_interrupt"),
				)
				interrupt(errCancelRequested)
				return
			}
		}
	}
}
