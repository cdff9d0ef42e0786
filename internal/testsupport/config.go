package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tunebind/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.VideoDir = filepath.Join(base, "videos")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.MusicBrainz.UserAgent = "tunebind-tests/1.0 (tests@example.com)"
	cfgVal.MusicBrainz.MinIntervalMS = 0
	cfgVal.Workflow.RetryBackoffSeconds = 0
	cfgVal.Workflow.RetryBackoffMaxSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMusicBrainz points the authority client at baseURL.
func WithMusicBrainz(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.MusicBrainz.BaseURL = baseURL
	}
}

// WithCollections replaces the configured collections.
func WithCollections(cols ...config.Collection) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collections = append([]config.Collection(nil), cols...)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, yt-dlp and ffmpeg are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, filepath.Join(binDir, name), "exit 0\n")
		}

		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
