// Package queue persists acquisition jobs in SQLite and exposes the
// operations that drive their lifecycle.
//
// A job's canonical key is unique among active rows (queued, claimed,
// downloading, postprocessing). The constraint is a partial unique index, so
// concurrent enqueuers cannot both insert. Transitions only move forward;
// failed, cancelled and completed rows are never rewritten, and every state
// change appends to job_events. Rows are never deleted.
//
// The same database holds collection snapshots for the scheduler and the
// binding_failures list operators review.
//
// Schema changes bump schemaVersion in schema.go; users clear the database to
// adopt the new schema.
package queue
