// Package services defines the shared failure vocabulary and context helpers
// used by the worker lifecycle, the binding resolver, and the external tool
// adapters.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, collection IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus Wrap/WrapReason, which carry a closed-set
//     reason code through to the queue's failure_reason column.
//   - FailureClass, the single place that decides whether a failed attempt is
//     retried or terminal.
//
// Stage code should return wrapped errors and let the worker classify them
// instead of writing queue statuses directly.
package services
