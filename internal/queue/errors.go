package queue

import (
	"errors"
	"fmt"

	"tunebind/internal/services"
)

var (
	// ErrTransitionRejected marks a state change that would move a job
	// backwards, skip a step, or come from a worker that no longer owns it.
	ErrTransitionRejected = errors.New("transition rejected")
	// ErrLeaseLost reports that a job is no longer owned by the caller.
	ErrLeaseLost = errors.New("job lease lost")
)

func notFound(op string, id int64) error {
	return services.Wrap(services.ErrNotFound, "queue", op, fmt.Sprintf("job %d not found", id), nil)
}

func rejected(op string, id int64, from, to Status, why string) error {
	msg := fmt.Sprintf("job %d: %s -> %s", id, from, to)
	if why != "" {
		msg += " (" + why + ")"
	}
	return services.Wrap(services.ErrValidation, "queue", op, msg, ErrTransitionRejected)
}
