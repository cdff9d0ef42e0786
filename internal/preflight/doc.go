// Package preflight provides readiness checks for the filesystem paths,
// external binaries, and remote services tunebind depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll and CheckSystemDeps before starting the worker.
//     If any check fails it refuses to start rather than fail every job.
//   - The CLI "tunebind status" command uses the individual check functions
//     to display service health.
//
// Network checks are gated by configuration; unused integrations are skipped.
package preflight
