package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tunebind/internal/logging"
	"tunebind/internal/queue"
	"tunebind/internal/services"
)

// handleFailure records the outcome of a failed attempt. cause is the job
// context's cancellation cause at the time the steps returned.
func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, cause, runErr error) error {
	switch {
	case errors.Is(cause, queue.ErrLeaseLost), errors.Is(runErr, queue.ErrLeaseLost), errors.Is(runErr, queue.ErrTransitionRejected):
		logger.Warn("job abandoned; lease no longer held",
			logging.Error(runErr),
			logging.String(logging.FieldEventType, "lease_lost"),
			logging.String(logging.FieldImpact, "another worker or recovery owns the job"),
		)
		return nil
	case ctx.Err() != nil:
		logger.Info("shutdown interrupted job; it will be recovered on restart",
			logging.String(logging.FieldEventType, "job_interrupted"),
		)
		return ctx.Err()
	}

	disposition := services.FailureClass(runErr)
	if errors.Is(cause, errCancelRequested) {
		disposition = services.DispositionCancelled
	}
	summary := services.Summary(runErr)
	details := services.Details(runErr)
	m.setLastError(runErr)

	attrs := []logging.Attr{
		logging.String("disposition", string(disposition)),
		logging.String("error_kind", string(details.Kind)),
		logging.String("error_operation", details.Operation),
		logging.String(logging.FieldReason, details.Reason),
		logging.Alert("job_failure"),
		logging.String(logging.FieldEventType, "job_attempt_failed"),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(runErr))
	}
	logger.Warn("job attempt failed", logging.Args(attrs...)...)

	switch disposition {
	case services.DispositionRetry:
		updated, err := m.store.ScheduleRetry(ctx, job.ID, m.workerID, m.retry, summary)
		if err != nil {
			return m.storeFailure(logger, err)
		}
		m.setLastJob(updated)
		if updated.Status == queue.StatusFailed {
			logger.Warn("job failed; retries exhausted",
				logging.Int("attempts", updated.Attempts),
				logging.String(logging.FieldEventType, "job_failed"),
			)
			m.notifyFailed(ctx, logger, updated)
			return nil
		}
		requeued := []logging.Attr{
			logging.Int("attempts", updated.Attempts),
			logging.Int("max_attempts", updated.MaxAttempts),
			logging.String(logging.FieldEventType, "job_requeued"),
		}
		if updated.ReadyAt != nil {
			requeued = append(requeued, logging.String("ready_at", updated.ReadyAt.UTC().Format(time.RFC3339)))
		}
		logger.Info("job requeued for retry", logging.Args(requeued...)...)
		return nil

	case services.DispositionCancelled:
		if err := m.store.RecordTerminal(ctx, job.ID, m.workerID, queue.Outcome{
			Status: queue.StatusCancelled,
			Reason: queue.ReasonCancelled,
			Error:  summary,
		}); err != nil {
			return m.storeFailure(logger, err)
		}
		job.Status = queue.StatusCancelled
		m.setLastJob(job)
		logger.Info("job cancelled", logging.String(logging.FieldEventType, "job_cancelled"))
		return nil

	default:
		reason := details.Reason
		if reason == "" {
			reason = string(details.Kind)
		}
		if err := m.store.RecordTerminal(ctx, job.ID, m.workerID, queue.Outcome{
			Status: queue.StatusFailed,
			Reason: reason,
			Error:  summary,
		}); err != nil {
			return m.storeFailure(logger, err)
		}
		job.Status = queue.StatusFailed
		job.FailureReason = reason
		job.LastError = summary
		m.setLastJob(job)
		logging.ErrorWithContext(logger, "job failed", "job_failed",
			logging.String(logging.FieldReason, reason),
			logging.String(logging.FieldErrorHint, "inspect with tunebind queue show"),
		)
		m.notifyFailed(ctx, logger, job)
		return nil
	}
}

// storeFailure swallows rejections from a store that has moved on without
// this worker and reports anything else.
func (m *Manager) storeFailure(logger *slog.Logger, err error) error {
	if errors.Is(err, queue.ErrTransitionRejected) {
		logger.Warn("failure report rejected; job no longer owned",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lease_lost"),
		)
		return nil
	}
	m.setLastError(err)
	logger.Error("failed to persist job outcome",
		logging.Error(err),
		logging.String(logging.FieldEventType, "job_persist_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	return err
}
