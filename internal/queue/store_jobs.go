package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tunebind/internal/services"
)

const defaultMaxAttempts = 3

// EnqueueRequest describes a job to insert.
type EnqueueRequest struct {
	CanonicalKey string
	Origin       Origin
	Payload      Payload
	MaxAttempts  int
	// Force inserts a new row even when a completed job holds the key.
	Force bool
}

// Enqueue inserts a job unless one with the same canonical key is active or,
// without Force, already completed. It returns the job that holds the key and
// whether a row was created. Failed and cancelled jobs never block a new row.
func (s *Store) Enqueue(ctx context.Context, req EnqueueRequest) (*Job, bool, error) {
	key := strings.TrimSpace(req.CanonicalKey)
	if key == "" {
		return nil, false, services.Wrap(services.ErrValidation, "queue", "enqueue", "canonical key is required", nil)
	}
	if req.Origin == "" {
		return nil, false, services.Wrap(services.ErrValidation, "queue", "enqueue", "origin is required", nil)
	}
	if err := req.Payload.Validate(); err != nil {
		return nil, false, services.Wrap(services.ErrValidation, "queue", "enqueue", "invalid payload", err)
	}
	payloadJSON, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("marshal payload: %w", err)
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var (
		id      int64
		created bool
	)
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		created = false
		existing, err := idByKey(ctx, tx, key, activeStatuses)
		if err != nil || existing != 0 {
			id = existing
			return err
		}
		if !req.Force {
			done, err := idByKey(ctx, tx, key, []Status{StatusCompleted})
			if err != nil || done != 0 {
				id = done
				return err
			}
		}

		now := s.timestamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (
                canonical_key, origin, media_kind, payload_json, status,
                attempts, max_attempts, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
			key, string(req.Origin), string(req.Payload.Kind()), string(payloadJSON), StatusQueued,
			maxAttempts, now, now,
		)
		if isUniqueViolation(err) {
			id, err = idByKey(ctx, tx, key, activeStatuses)
			return err
		}
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		created = true
		return insertEvent(ctx, tx, id, "", StatusQueued, "enqueued via "+string(req.Origin), now)
	})
	if err != nil {
		return nil, false, err
	}
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return job, created, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func idByKey(ctx context.Context, q querier, key string, statuses []Status) (int64, error) {
	args := append([]any{key}, statusArgs(statuses)...)
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM jobs WHERE canonical_key = ? AND status IN (`+makePlaceholders(len(statuses))+`) ORDER BY id DESC LIMIT 1`,
		args...,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup canonical key: %w", err)
	}
	return id, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, jobID int64, from, to Status, detail, at string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO job_events (job_id, from_status, to_status, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		jobID, nullableString(string(from)), string(to), nullableString(detail), at,
	); err != nil {
		return fmt.Errorf("record job event: %w", err)
	}
	return nil
}

// GetByID fetches a job by identifier. A missing job yields nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindActiveByKey returns the active job holding key, or nil.
func (s *Store) FindActiveByKey(ctx context.Context, key string) (*Job, error) {
	id, err := idByKey(ensureContext(ctx), s.db, strings.TrimSpace(key), activeStatuses)
	if err != nil || id == 0 {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// ListOptions filters List.
type ListOptions struct {
	Statuses []Status
	Limit    int
	// Newest orders by descending id.
	Newest bool
}

// List returns jobs matching opts.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(opts.Statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(opts.Statuses)) + `)`
		args = append(args, statusArgs(opts.Statuses)...)
	}
	if opts.Newest {
		query += ` ORDER BY id DESC`
	} else {
		query += ` ORDER BY id`
	}
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return scanJobs(rows)
}

// ClaimNext atomically moves the oldest ready queued job to claimed for
// workerID. It returns nil when nothing is ready.
func (s *Store) ClaimNext(ctx context.Context, workerID string) (*Job, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "claim", "worker id is required", nil)
	}
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id = 0
		now := s.timestamp()
		err := tx.QueryRowContext(ctx,
			`UPDATE jobs
             SET status = ?, worker_id = ?, claimed_at = ?, last_heartbeat = ?, updated_at = ?
             WHERE id = (
                 SELECT id FROM jobs
                 WHERE status = ? AND cancel_requested = 0 AND (ready_at IS NULL OR ready_at <= ?)
                 ORDER BY id LIMIT 1
             )
             RETURNING id`,
			StatusClaimed, workerID, now, now, now,
			StatusQueued, now,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("claim job: %w", err)
		}
		return insertEvent(ctx, tx, id, StatusQueued, StatusClaimed, "claimed by "+workerID, now)
	})
	if err != nil || id == 0 {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

type jobState struct {
	status      Status
	workerID    string
	attempts    int
	maxAttempts int
}

func loadState(ctx context.Context, tx *sql.Tx, id int64) (*jobState, error) {
	var (
		st     jobState
		status string
		worker sql.NullString
	)
	err := tx.QueryRowContext(ctx,
		`SELECT status, worker_id, attempts, max_attempts FROM jobs WHERE id = ?`, id,
	).Scan(&status, &worker, &st.attempts, &st.maxAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load job state: %w", err)
	}
	st.status = Status(status)
	st.workerID = worker.String
	return &st, nil
}

// checkOwner rejects reports from a worker that no longer owns the job. An
// empty workerID skips the check.
func checkOwner(op string, id int64, st *jobState, to Status, workerID string) error {
	if workerID != "" && st.workerID != workerID {
		return rejected(op, id, st.status, to, "not owned by "+workerID)
	}
	return nil
}

// Transition advances a job one step along queued → claimed → downloading →
// postprocessing → completed, or to failed/cancelled from any active state.
// Any other move is rejected with ErrTransitionRejected, as is a report from
// a worker that no longer owns the job.
func (s *Store) Transition(ctx context.Context, id int64, workerID string, to Status, detail string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		st, err := loadState(ctx, tx, id)
		if err != nil {
			return err
		}
		if st == nil {
			return notFound("transition", id)
		}
		if !canTransition(st.status, to) {
			return rejected("transition", id, st.status, to, "")
		}
		if err := checkOwner("transition", id, st, to, workerID); err != nil {
			return err
		}
		now := s.timestamp()
		var finished any
		if to.IsTerminal() {
			finished = now
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, updated_at = ?, last_heartbeat = ?, finished_at = COALESCE(?, finished_at)
             WHERE id = ? AND status = ?`,
			to, now, now, finished, id, st.status,
		)
		if err != nil {
			return fmt.Errorf("transition job: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return rejected("transition", id, st.status, to, "concurrent update")
		}
		return insertEvent(ctx, tx, id, st.status, to, detail, now)
	})
}

// Outcome is the final record of a job.
type Outcome struct {
	Status     Status
	Reason     string
	Error      string
	OutputPath string
}

// RecordTerminal moves a job into a terminal state with its reason, error
// text and output path. The same forward-only rules as Transition apply.
func (s *Store) RecordTerminal(ctx context.Context, id int64, workerID string, outcome Outcome) error {
	if !outcome.Status.IsTerminal() {
		return services.Wrap(services.ErrValidation, "queue", "record terminal", fmt.Sprintf("%s is not terminal", outcome.Status), nil)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		st, err := loadState(ctx, tx, id)
		if err != nil {
			return err
		}
		if st == nil {
			return notFound("record terminal", id)
		}
		if !canTransition(st.status, outcome.Status) {
			return rejected("record terminal", id, st.status, outcome.Status, "")
		}
		if err := checkOwner("record terminal", id, st, outcome.Status, workerID); err != nil {
			return err
		}
		now := s.timestamp()
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, failure_reason = ?, last_error = ?, output_path = COALESCE(?, output_path),
                 last_heartbeat = NULL, updated_at = ?, finished_at = ?
             WHERE id = ?`,
			outcome.Status, nullableString(outcome.Reason), nullableString(outcome.Error), nullableString(outcome.OutputPath),
			now, now, id,
		); err != nil {
			return fmt.Errorf("record terminal: %w", err)
		}
		detail := outcome.Reason
		if outcome.Error != "" {
			detail = strings.TrimSpace(detail + " " + outcome.Error)
		}
		return insertEvent(ctx, tx, id, st.status, outcome.Status, detail, now)
	})
}

// ScheduleRetry handles a transient failure of a running job: it counts the
// attempt and either re-queues the job with a backoff delay or, once
// max_attempts is reached, fails it with retries_exhausted. It returns the
// job's new state.
func (s *Store) ScheduleRetry(ctx context.Context, id int64, workerID string, policy RetryPolicy, message string) (*Job, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		st, err := loadState(ctx, tx, id)
		if err != nil {
			return err
		}
		if st == nil {
			return notFound("schedule retry", id)
		}
		if !st.status.IsActive() || st.status == StatusQueued {
			return rejected("schedule retry", id, st.status, StatusQueued, "job is not running")
		}
		if err := checkOwner("schedule retry", id, st, StatusQueued, workerID); err != nil {
			return err
		}
		now := s.now()
		stamp := formatTime(now)
		attempts := st.attempts + 1
		if attempts >= st.maxAttempts {
			lastErr := ReasonRetriesExhausted + ": " + message
			if _, err := tx.ExecContext(ctx,
				`UPDATE jobs SET status = ?, attempts = ?, failure_reason = ?, last_error = ?,
                     last_heartbeat = NULL, updated_at = ?, finished_at = ?
                 WHERE id = ?`,
				StatusFailed, attempts, ReasonRetriesExhausted, lastErr, stamp, stamp, id,
			); err != nil {
				return fmt.Errorf("exhaust job: %w", err)
			}
			return insertEvent(ctx, tx, id, st.status, StatusFailed, lastErr, stamp)
		}
		readyAt := now.Add(policy.Delay(attempts))
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, attempts = ?, last_error = ?, ready_at = ?, worker_id = NULL,
                 claimed_at = NULL, last_heartbeat = NULL, updated_at = ?
             WHERE id = ?`,
			StatusQueued, attempts, nullableString(message), formatTime(readyAt), stamp, id,
		); err != nil {
			return fmt.Errorf("requeue job: %w", err)
		}
		return insertEvent(ctx, tx, id, st.status, StatusQueued,
			fmt.Sprintf("retry %d/%d at %s: %s", attempts, st.maxAttempts, formatTime(readyAt), message), stamp)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// UpdateHeartbeat refreshes the liveness timestamp of a running job owned by
// workerID. ErrLeaseLost is returned when the job was reclaimed or finished.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64, workerID string) error {
	ctx = ensureContext(ctx)
	var affected int64
	args := append([]any{s.timestamp(), id, workerID}, statusArgs(runningStatuses)...)
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET last_heartbeat = ? WHERE id = ? AND worker_id = ? AND status IN (`+makePlaceholders(len(runningStatuses))+`)`,
			args...,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d: %w", id, ErrLeaseLost)
	}
	return nil
}

// RequestCancel cancels a queued job immediately and flags a running one for
// the worker's next checkpoint. It returns the job's status after the call.
func (s *Store) RequestCancel(ctx context.Context, id int64) (Status, error) {
	var result Status
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		st, err := loadState(ctx, tx, id)
		if err != nil {
			return err
		}
		if st == nil {
			return notFound("cancel", id)
		}
		result = st.status
		now := s.timestamp()
		switch {
		case st.status == StatusQueued:
			if _, err := tx.ExecContext(ctx,
				`UPDATE jobs SET status = ?, cancel_requested = 1, failure_reason = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
				StatusCancelled, ReasonCancelled, now, now, id,
			); err != nil {
				return fmt.Errorf("cancel queued job: %w", err)
			}
			result = StatusCancelled
			return insertEvent(ctx, tx, id, StatusQueued, StatusCancelled, "cancelled before claim", now)
		case st.status.IsActive():
			if _, err := tx.ExecContext(ctx,
				`UPDATE jobs SET cancel_requested = 1, updated_at = ? WHERE id = ?`, now, id,
			); err != nil {
				return fmt.Errorf("flag job for cancel: %w", err)
			}
			return insertEvent(ctx, tx, id, st.status, st.status, "cancel requested", now)
		default:
			return rejected("cancel", id, st.status, StatusCancelled, "job already finished")
		}
	})
	return result, err
}

// CancelRequested reports whether a cancel has been requested for id.
func (s *Store) CancelRequested(ctx context.Context, id int64) (bool, error) {
	var flag int
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT cancel_requested FROM jobs WHERE id = ?`, id).Scan(&flag)
	if errors.Is(err, sql.ErrNoRows) {
		return false, notFound("cancel requested", id)
	}
	if err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return flag != 0, nil
}

// Events returns a job's state history, oldest first.
func (s *Store) Events(ctx context.Context, id int64) ([]Event, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, job_id, from_status, to_status, detail, created_at FROM job_events WHERE job_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list job events: %w", err)
	}
	defer rows.Close()
	var events []Event
	for rows.Next() {
		var (
			ev      Event
			from    sql.NullString
			to      string
			detail  sql.NullString
			created string
		)
		if err := rows.Scan(&ev.ID, &ev.JobID, &from, &to, &detail, &created); err != nil {
			return nil, err
		}
		ev.From = Status(from.String)
		ev.To = Status(to)
		ev.Detail = detail.String
		if t, err := parseTimeString(created); err == nil {
			ev.CreatedAt = t
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
