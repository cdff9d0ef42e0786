package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// RecordBindingFailure stores an intent that could not be bound.
func (s *Store) RecordBindingFailure(ctx context.Context, failure BindingFailure) error {
	if strings.TrimSpace(failure.Reason) == "" {
		return errors.New("binding failure reason is required")
	}
	if failure.Origin == "" {
		failure.Origin = OriginSearch
	}
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO binding_failures (batch_id, origin, artist, title, album, reason, detail, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(failure.BatchID), string(failure.Origin),
		nullableString(failure.Artist), nullableString(failure.Title), nullableString(failure.Album),
		failure.Reason, nullableString(failure.Detail), s.timestamp(),
	); err != nil {
		return fmt.Errorf("record binding failure: %w", err)
	}
	return nil
}

// BindingFailures returns the most recent failures first.
func (s *Store) BindingFailures(ctx context.Context, limit int) ([]BindingFailure, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, COALESCE(batch_id, ''), origin, COALESCE(artist, ''), COALESCE(title, ''), COALESCE(album, ''),
                reason, COALESCE(detail, ''), created_at
         FROM binding_failures ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list binding failures: %w", err)
	}
	defer rows.Close()
	var out []BindingFailure
	for rows.Next() {
		var (
			f       BindingFailure
			origin  string
			created string
		)
		if err := rows.Scan(&f.ID, &f.BatchID, &origin, &f.Artist, &f.Title, &f.Album, &f.Reason, &f.Detail, &created); err != nil {
			return nil, err
		}
		f.Origin = Origin(origin)
		if t, err := parseTimeString(created); err == nil {
			f.CreatedAt = t
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
