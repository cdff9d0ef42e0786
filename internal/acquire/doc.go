// Package acquire is the download step of a job.
//
// Prepare resets the job's staging directory and settles which provider item
// will be fetched: the pinned source of a video or pre-resolved music job, or
// the best provider search result for a bound pair, scored by the same
// scoring.Score every other ingestion path uses. Execute builds the
// media-specific executor request, runs it, and refuses to hand back anything
// but a non-empty file.
package acquire
