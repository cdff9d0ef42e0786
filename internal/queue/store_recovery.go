package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ReclaimStale returns running jobs whose last sign of life is older than
// cutoff to the queue. Each reclaim counts as one failed attempt; a job that
// has used its attempts fails with orphaned_retries_exhausted instead.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (ReclaimResult, error) {
	return s.reclaim(ctx, "reclaimed after missed heartbeat",
		`COALESCE(last_heartbeat, claimed_at, updated_at) < ?`, formatTime(cutoff))
}

// RecoverOrphans reclaims every running job not owned by exceptWorker. It
// runs once at daemon start, before any claim, after a crash left rows
// mid-flight.
func (s *Store) RecoverOrphans(ctx context.Context, exceptWorker string) (ReclaimResult, error) {
	return s.reclaim(ctx, "recovered after restart",
		`COALESCE(worker_id, '') <> ?`, strings.TrimSpace(exceptWorker))
}

func (s *Store) reclaim(ctx context.Context, detail, predicate string, arg any) (ReclaimResult, error) {
	var result ReclaimResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result = ReclaimResult{}
		args := append(statusArgs(runningStatuses), arg)
		rows, err := tx.QueryContext(ctx,
			`SELECT id, status, attempts, max_attempts FROM jobs
             WHERE status IN (`+makePlaceholders(len(runningStatuses))+`) AND `+predicate+`
             ORDER BY id`,
			args...,
		)
		if err != nil {
			return fmt.Errorf("select stale jobs: %w", err)
		}
		type stale struct {
			id          int64
			status      Status
			attempts    int
			maxAttempts int
		}
		var found []stale
		for rows.Next() {
			var (
				item   stale
				status string
			)
			if err := rows.Scan(&item.id, &status, &item.attempts, &item.maxAttempts); err != nil {
				rows.Close()
				return err
			}
			item.status = Status(status)
			found = append(found, item)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		now := s.timestamp()
		for _, item := range found {
			attempts := item.attempts + 1
			if attempts >= item.maxAttempts {
				msg := ReasonOrphanedRetriesExhausted + ": " + detail
				if _, err := tx.ExecContext(ctx,
					`UPDATE jobs SET status = ?, attempts = ?, failure_reason = ?, last_error = ?,
                         last_heartbeat = NULL, updated_at = ?, finished_at = ?
                     WHERE id = ? AND status = ?`,
					StatusFailed, attempts, ReasonOrphanedRetriesExhausted, msg, now, now, item.id, item.status,
				); err != nil {
					return fmt.Errorf("fail orphaned job: %w", err)
				}
				if err := insertEvent(ctx, tx, item.id, item.status, StatusFailed, msg, now); err != nil {
					return err
				}
				result.Failed++
			} else {
				if _, err := tx.ExecContext(ctx,
					`UPDATE jobs SET status = ?, attempts = ?, worker_id = NULL, claimed_at = NULL,
                         last_heartbeat = NULL, ready_at = NULL, updated_at = ?
                     WHERE id = ? AND status = ?`,
					StatusQueued, attempts, now, item.id, item.status,
				); err != nil {
					return fmt.Errorf("requeue orphaned job: %w", err)
				}
				if err := insertEvent(ctx, tx, item.id, item.status, StatusQueued,
					fmt.Sprintf("%s (attempt %d/%d)", detail, attempts, item.maxAttempts), now); err != nil {
					return err
				}
				result.Requeued++
			}
			result.JobIDs = append(result.JobIDs, item.id)
		}
		return nil
	})
	return result, err
}
