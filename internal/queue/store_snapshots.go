package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Snapshot returns the last persisted view of collectionID, or nil when the
// collection has never been observed.
func (s *Store) Snapshot(ctx context.Context, collectionID string) (*Snapshot, error) {
	var (
		snap    Snapshot
		idsJSON string
		updated string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT collection_id, content_hash, item_ids_json, updated_at FROM snapshots WHERE collection_id = ?`,
		strings.TrimSpace(collectionID),
	).Scan(&snap.CollectionID, &snap.ContentHash, &idsJSON, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(idsJSON), &snap.ItemIDs); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.CollectionID, err)
	}
	if t, err := parseTimeString(updated); err == nil {
		snap.UpdatedAt = t
	}
	return &snap, nil
}

// SaveSnapshot replaces the stored view of a collection.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	id := strings.TrimSpace(snap.CollectionID)
	if id == "" {
		return errors.New("snapshot collection id is required")
	}
	ids := snap.ItemIDs
	if ids == nil {
		ids = []string{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode snapshot ids: %w", err)
	}
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO snapshots (collection_id, content_hash, item_ids_json, item_count, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(collection_id) DO UPDATE SET
             content_hash = excluded.content_hash,
             item_ids_json = excluded.item_ids_json,
             item_count = excluded.item_count,
             updated_at = excluded.updated_at`,
		id, snap.ContentHash, string(encoded), len(ids), s.timestamp(),
	); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
