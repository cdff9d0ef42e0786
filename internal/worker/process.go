package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"tunebind/internal/logging"
	"tunebind/internal/queue"
	"tunebind/internal/services"
	"tunebind/internal/stage"
)

func (m *Manager) process(ctx context.Context, job *queue.Job) error {
	baseCtx := services.WithJobID(ctx, job.ID)
	baseCtx = services.WithWorkerID(baseCtx, m.workerID)
	baseCtx = services.WithCorrelationID(baseCtx, uuid.NewString())
	logger := logging.WithContext(baseCtx, m.logger).With(logging.String(logging.FieldCanonicalKey, job.CanonicalKey))

	logger.Info("job claimed",
		logging.String("origin", string(job.Origin)),
		logging.String("media_kind", string(job.MediaKind)),
		logging.Int("attempts", job.Attempts),
		logging.Int("max_attempts", job.MaxAttempts),
		logging.String(logging.FieldEventType, "job_claimed"),
	)
	m.setLastJob(job)

	jobCtx, interrupt := context.WithCancelCause(baseCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.Run(jobCtx, &hbWG, job.ID, m.workerID, interrupt)

	work := &stage.Work{Job: job}
	started := time.Now()
	runErr := m.runSteps(jobCtx, work)
	cause := context.Cause(jobCtx)
	interrupt(context.Canceled)
	hbWG.Wait()

	if work.WorkDir != "" {
		if err := os.RemoveAll(work.WorkDir); err != nil {
			logger.Warn("staging cleanup failed", logging.Error(err), logging.String("work_dir", work.WorkDir))
		}
	}

	if runErr != nil {
		return m.handleFailure(baseCtx, logger, job, cause, runErr)
	}
	return m.complete(baseCtx, logger, work, time.Since(started))
}

func (m *Manager) runSteps(ctx context.Context, work *stage.Work) error {
	if err := m.checkpoint(ctx, work.Job.ID, "after claim"); err != nil {
		return err
	}
	for _, step := range m.steps {
		if err := m.runStep(ctx, step, work); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) runStep(ctx context.Context, step pipelineStep, work *stage.Work) error {
	stepCtx := services.WithStage(ctx, step.name)
	logger := logging.WithContext(stepCtx, m.logger)
	if aware, ok := step.handler.(stage.LoggerAware); ok {
		aware.SetLogger(logging.NewComponentLogger(m.root, step.name))
	}

	if err := m.store.Transition(stepCtx, work.Job.ID, m.workerID, step.status, step.name+" started"); err != nil {
		return err
	}
	work.Job.Status = step.status
	stepStart := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(step.status)),
	)

	if err := step.handler.Prepare(stepCtx, work); err != nil {
		return err
	}
	if err := m.checkpoint(stepCtx, work.Job.ID, "before "+step.name); err != nil {
		return err
	}
	if err := step.handler.Execute(stepCtx, work); err != nil {
		return err
	}
	if err := m.checkpoint(stepCtx, work.Job.ID, "after "+step.name); err != nil {
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(stepStart)),
	)
	return nil
}

// checkpoint fails with a cancelled error once a cancel was requested for id.
func (m *Manager) checkpoint(ctx context.Context, id int64, point string) error {
	if errors.Is(context.Cause(ctx), errCancelRequested) {
		return cancelledAt(point)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	requested, err := m.store.CancelRequested(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "worker", "checkpoint", point, err)
	}
	if requested {
		return cancelledAt(point)
	}
	return nil
}

func cancelledAt(point string) error {
	return services.WrapReason(services.ErrCancelled, "worker", "checkpoint", queue.ReasonCancelled, "cancel requested "+point, nil)
}

func (m *Manager) complete(ctx context.Context, logger *slog.Logger, work *stage.Work, elapsed time.Duration) error {
	job := work.Job
	err := m.store.RecordTerminal(ctx, job.ID, m.workerID, queue.Outcome{
		Status:     queue.StatusCompleted,
		OutputPath: work.FinalPath,
	})
	if err != nil {
		if errors.Is(err, queue.ErrTransitionRejected) {
			logger.Warn("completion rejected; job no longer owned",
				logging.Error(err),
				logging.String(logging.FieldEventType, "lease_lost"),
			)
			return nil
		}
		m.setLastError(err)
		return err
	}
	job.Status = queue.StatusCompleted
	job.OutputPath = work.FinalPath
	m.setLastJob(job)
	logger.Info("job completed",
		logging.String("output_path", work.FinalPath),
		logging.Duration("duration", elapsed),
		logging.String(logging.FieldEventType, "job_completed"),
	)
	m.notifyCompleted(ctx, logger, job)
	return nil
}
