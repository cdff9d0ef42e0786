package worker

import (
	"context"
	"errors"
	"log/slog"

	"tunebind/internal/logging"
	"tunebind/internal/notifications"
	"tunebind/internal/queue"
)

func (m *Manager) notifyCompleted(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	m.publish(ctx, logger, notifications.EventJobCompleted, notifications.Payload{
		"job_id": job.ID,
		"label":  job.Label(),
		"path":   job.OutputPath,
	})
}

func (m *Manager) notifyFailed(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	m.publish(ctx, logger, notifications.EventJobFailed, notifications.Payload{
		"job_id": job.ID,
		"label":  job.Label(),
		"reason": job.FailureReason,
		"error":  job.LastError,
	})
}

func (m *Manager) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send notification")
		} else {
			logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
		}
	}
}
