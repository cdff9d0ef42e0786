// Package main hosts the tunebind CLI.
//
// Commands open the queue database directly; SQLite WAL mode lets them run
// next to a live tunebindd. Enqueue, status, and failure views read and write
// through internal/intake and internal/queue, so the CLI never holds state of
// its own. `tunebind run` processes the queue in the foreground and refuses
// to start while the daemon owns the worker lock.
package main
