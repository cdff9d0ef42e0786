// Package executor drives the external acquisition tool (yt-dlp) and the
// post-download tagger (ffmpeg).
//
// Requests are typed per media kind: AudioRequest extracts audio only and
// has no merge fields; VideoRequest merges the best video and audio streams
// into a container. The subprocess runner keeps bounded tails of stdout and
// stderr, kills the whole process group on cancellation, and Classify maps a
// failed run onto the services error markers so the worker can decide
// between retry and terminal failure.
package executor
