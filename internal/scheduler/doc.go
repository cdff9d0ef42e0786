// Package scheduler polls watched collections and enqueues their additions.
//
// Each tick fetches a collection's current items, fingerprints the id set,
// and compares it with the last persisted snapshot. Matching fingerprints mean
// nothing changed, which is how a pure reorder is ignored. Otherwise the id
// sets are diffed and only added items are enqueued. The new snapshot is
// persisted after every addition has been handled, so a crash mid-tick
// replays the same diff on the next run.
package scheduler
