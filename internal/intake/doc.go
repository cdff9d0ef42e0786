// Package intake exposes the operations that put work on the queue.
//
// Every path binds first and enqueues second: a search intent is resolved to
// a BoundPair before any row is written, so a caller always learns why a
// track could not be bound before anything is queued. Binding failures are
// recorded in the failures table and announced through notifications.
// Direct URLs are reduced to their canonical form, which becomes the job's
// identity.
package intake
