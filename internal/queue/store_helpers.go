package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, canonical_key, origin, media_kind, payload_json, status, attempts, max_attempts, last_error, failure_reason, output_path, worker_id, cancel_requested, ready_at, last_heartbeat, created_at, updated_at, claimed_at, finished_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		id              int64
		canonicalKey    string
		origin          string
		mediaKind       string
		payloadJSON     string
		statusStr       string
		attempts        int
		maxAttempts     int
		lastError       sql.NullString
		failureReason   sql.NullString
		outputPath      sql.NullString
		workerID        sql.NullString
		cancelRequested int
		readyRaw        sql.NullString
		heartbeatRaw    sql.NullString
		createdRaw      string
		updatedRaw      string
		claimedRaw      sql.NullString
		finishedRaw     sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&canonicalKey,
		&origin,
		&mediaKind,
		&payloadJSON,
		&statusStr,
		&attempts,
		&maxAttempts,
		&lastError,
		&failureReason,
		&outputPath,
		&workerID,
		&cancelRequested,
		&readyRaw,
		&heartbeatRaw,
		&createdRaw,
		&updatedRaw,
		&claimedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		CanonicalKey:    canonicalKey,
		Origin:          Origin(origin),
		MediaKind:       MediaKind(mediaKind),
		Status:          Status(statusStr),
		Attempts:        attempts,
		MaxAttempts:     maxAttempts,
		LastError:       lastError.String,
		FailureReason:   failureReason.String,
		OutputPath:      outputPath.String,
		WorkerID:        workerID.String,
		CancelRequested: cancelRequested != 0,
		ReadyAt:         parseNullTime(readyRaw),
		LastHeartbeat:   parseNullTime(heartbeatRaw),
		ClaimedAt:       parseNullTime(claimedRaw),
		FinishedAt:      parseNullTime(finishedRaw),
	}
	if err := json.Unmarshal([]byte(payloadJSON), &job.Payload); err != nil {
		return nil, fmt.Errorf("decode payload of job %d: %w", id, err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseNullTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	return args
}
