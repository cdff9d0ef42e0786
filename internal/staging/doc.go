// Package staging manages per-job work directories under paths.staging_dir.
//
// Each job downloads into job-<id>. The worker removes its directory when a
// job finishes, but a crash or a killed subprocess can leave one behind;
// CleanOrphaned and CleanStale reclaim that space without touching the work
// directory of a job that is still active.
package staging
