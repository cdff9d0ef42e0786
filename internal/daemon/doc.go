// Package daemon coordinates the long-running tunebind process.
//
// It wires configuration, queue storage, the worker manager, and the
// scheduler loop into a single lifecycle guarded by a flock so only one
// instance drains the queue at a time. The worker recovers orphaned jobs on
// start; the scheduler polls watched collections on its own interval. Both
// communicate only through the queue store.
//
// Keep orchestration logic here: acquisition, binding, and collection
// polling live in their own packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
