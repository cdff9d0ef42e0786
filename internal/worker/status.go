package worker

import (
	"context"

	"tunebind/internal/logging"
	"tunebind/internal/queue"
	"tunebind/internal/stage"
)

// StatusSummary is a read-only view of the worker and the queue.
type StatusSummary struct {
	Running     bool
	WorkerID    string
	LastError   string
	LastJob     *queue.Job
	QueueStats  map[queue.Status]int
	StageHealth []stage.Health
}

// Status reports the worker state and current queue counts.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastJob := m.lastJob
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	health := make([]stage.Health, 0, len(m.steps))
	for _, step := range m.steps {
		health = append(health, step.handler.HealthCheck(ctx))
	}

	summary := StatusSummary{Running: running, WorkerID: m.workerID, QueueStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
