// Package logging assembles the slog loggers used across tunebind.
//
// Console output goes through charmbracelet/log, which implements
// slog.Handler directly; JSON output uses the standard JSON handler with
// renamed keys. NewFromConfig tees the console logger into a JSON file under
// the configured log directory so the daemon keeps a machine-readable trail.
//
// WithContext stamps job IDs, stages, collections, and worker IDs carried by
// the services context helpers onto every line.
package logging
