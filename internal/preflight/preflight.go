package preflight

import (
	"context"

	"tunebind/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks plus any network check whose feature
// is in use. Binary availability is reported separately by CheckSystemDeps.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
	}
	if cfg.Paths.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
	}
	if cfg.Paths.VideoDir != "" && usesVideo(cfg) {
		results = append(results, CheckDirectoryAccess("Video directory", cfg.Paths.VideoDir))
	}
	if usesSpotify(cfg) {
		results = append(results, CheckSpotify(ctx, cfg.Spotify))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func usesVideo(cfg *config.Config) bool {
	for _, col := range cfg.Collections {
		if col.Enabled && col.MediaType == "video" {
			return true
		}
	}
	return false
}

func usesSpotify(cfg *config.Config) bool {
	for _, col := range cfg.Collections {
		if col.Enabled && col.Source == "spotify" {
			return true
		}
	}
	return false
}
