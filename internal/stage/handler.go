package stage

import (
	"context"
	"log/slog"

	"tunebind/internal/queue"
)

// Work is the per-attempt state a job accumulates as its steps run. It is
// rebuilt from the job row on every claim and never persisted as a whole.
type Work struct {
	Job *queue.Job
	// WorkDir is the attempt's private staging directory.
	WorkDir string
	// SourceURL is the provider item being acquired.
	SourceURL string
	// DownloadedPath is the verified executor output inside WorkDir.
	DownloadedPath string
	// FinalPath is the job's location in the library after finalization.
	FinalPath string
}

// Handler describes the contract the worker needs from each step.
type Handler interface {
	Prepare(context.Context, *Work) error
	Execute(context.Context, *Work) error
	HealthCheck(context.Context) Health
}

// LoggerAware is implemented by handlers that accept a per-job logger.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
