// Package worker runs queued jobs one at a time.
//
// A Manager claims the oldest ready job, walks it through the acquire step
// (DOWNLOADING) and the organize step (POSTPROCESSING), and records the
// outcome. A heartbeat goroutine keeps the job's lease alive for the whole
// attempt and polls the cancel flag; when either the lease is lost or a
// cancel is requested it interrupts the running step through the job's
// context. Failures are mapped through services.FailureClass: transient
// errors are re-queued with backoff, everything else fails terminally.
//
// On Start the manager first recovers jobs left running by a previous
// process, and it reclaims stale jobs between claims.
package worker
