// Package binding turns a loose track intent into one authoritative
// (recording, release, release-group) pair.
//
// A resolution walks COLLECTING_CANDIDATES → CLASSIFYING → SCORING and ends
// in SELECTED or FAILED. Failures carry a reason from a closed set and happen
// before anything is enqueued or any path is built.
package binding
