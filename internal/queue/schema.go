package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped on every schema change; older databases are
// refused rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch reports a database written by a different schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// initSchema creates the schema on first open. Detection and creation share
// one immediate transaction, so a CLI and a daemon opening a fresh database
// at the same moment cannot both apply it.
func (s *Store) initSchema(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var tables int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`,
		).Scan(&tables); err != nil {
			return fmt.Errorf("check schema_version table: %w", err)
		}
		if tables == 0 {
			if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
				return fmt.Errorf("record schema version: %w", err)
			}
			return nil
		}

		var version int
		err := tx.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("%w: schema_version is empty in %s", ErrSchemaMismatch, s.path)
		case err != nil:
			return fmt.Errorf("read schema version: %w", err)
		case version != schemaVersion:
			return fmt.Errorf("%w: %s has version %d, want %d (move it aside to start fresh)",
				ErrSchemaMismatch, s.path, version, schemaVersion)
		}
		return nil
	})
}
