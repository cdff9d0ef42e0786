// Package organizer finalizes a downloaded file: bound metadata is embedded
// into music files, then the file is moved atomically into its library path.
//
// Library paths are derived only from the job's BoundPair (album artist,
// album, disc and track position, title); nothing is re-derived from the
// provider's own title. Every failure here happens after a verified
// download and is reported as a postprocess error, which the worker never
// retries.
package organizer
