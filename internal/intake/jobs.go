package intake

import (
	"context"
	"fmt"
	"time"

	"tunebind/internal/queue"
	"tunebind/internal/services"
)

// JobStatus is the externally visible state of one job.
type JobStatus struct {
	ID            int64
	CanonicalKey  string
	Label         string
	Status        queue.Status
	Attempts      int
	MaxAttempts   int
	LastError     string
	FailureReason string
	OutputPath    string
	UpdatedAt     time.Time
}

// JobStatus reports the state, attempts, and last error of id.
func (s *Service) JobStatus(ctx context.Context, id int64) (*JobStatus, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "intake", "job status", fmt.Sprintf("job %d not found", id), nil)
	}
	return &JobStatus{
		ID:            job.ID,
		CanonicalKey:  job.CanonicalKey,
		Label:         job.Label(),
		Status:        job.Status,
		Attempts:      job.Attempts,
		MaxAttempts:   job.MaxAttempts,
		LastError:     job.LastError,
		FailureReason: job.FailureReason,
		OutputPath:    job.OutputPath,
		UpdatedAt:     job.UpdatedAt,
	}, nil
}

// RetryJob enqueues a fresh job with the payload of a failed or cancelled
// one. The original row is left untouched.
func (s *Service) RetryJob(ctx context.Context, id int64) (*Result, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "intake", "retry", fmt.Sprintf("job %d not found", id), nil)
	}
	if job.Status != queue.StatusFailed && job.Status != queue.StatusCancelled {
		return nil, services.Wrap(services.ErrValidation, "intake", "retry",
			fmt.Sprintf("job %d is %s; only failed or cancelled jobs can be retried", id, job.Status), nil)
	}
	return s.enqueue(ctx, job.CanonicalKey, job.Payload, Options{Origin: queue.OriginRetry})
}

// CancelJob requests cancellation of id and returns its resulting status.
func (s *Service) CancelJob(ctx context.Context, id int64) (queue.Status, error) {
	return s.store.RequestCancel(ctx, id)
}
