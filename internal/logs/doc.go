// Package logs reads the daemon log file for `tunebind logs`.
//
// Tail returns the last lines of a file with bounded memory, and Follow
// streams lines appended after an offset until the context ends. A file
// that shrinks (rotation or truncation) is re-read from the start.
package logs
