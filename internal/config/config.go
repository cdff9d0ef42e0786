package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains data, staging, and destination directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	LibraryDir string `toml:"library_dir"`
	VideoDir   string `toml:"video_dir"`
	LogDir     string `toml:"log_dir"`
}

// MusicBrainz contains configuration for the canonical metadata authority.
type MusicBrainz struct {
	BaseURL               string `toml:"base_url"`
	UserAgent             string `toml:"user_agent"`
	MinIntervalMS         int    `toml:"min_interval_ms"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	PreferredCountry      string `toml:"preferred_country"`
	AllowNonAlbumFallback bool   `toml:"allow_non_album_fallback"`
	CacheTTLSeconds       int    `toml:"cache_ttl_seconds"`
	SearchLimit           int    `toml:"search_limit"`
}

// Scoring contains the tunable floors and tolerances used by the scoring engine.
// The tie-break order is fixed in code and intentionally absent here.
type Scoring struct {
	CorrectnessFloor          float64 `toml:"correctness_floor"`
	TitleFloor                float64 `toml:"title_floor"`
	ArtistFloor               float64 `toml:"artist_floor"`
	StrictDurationToleranceMS int     `toml:"strict_duration_tolerance_ms"`
	AlbumDurationToleranceMS  int     `toml:"album_duration_tolerance_ms"`
	CompilationAlbumFloor     float64 `toml:"compilation_album_floor"`
	TieEpsilon                float64 `toml:"tie_epsilon"`
}

// Executor contains configuration for the external acquisition tool.
type Executor struct {
	Binary         string `toml:"binary"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	AudioFormat    string `toml:"audio_format"`
	VideoContainer string `toml:"video_container"`
	OutputTemplate string `toml:"output_template"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	SearchLimit    int    `toml:"search_limit"`
}

// Workflow contains worker timing, retry, and liveness configuration.
type Workflow struct {
	QueuePollInterval      int `toml:"queue_poll_interval"`
	ErrorRetryInterval     int `toml:"error_retry_interval"`
	HeartbeatInterval      int `toml:"heartbeat_interval"`
	HeartbeatTimeout       int `toml:"heartbeat_timeout"`
	MaxAttempts            int `toml:"max_attempts"`
	RetryBackoffSeconds    int `toml:"retry_backoff_seconds"`
	RetryBackoffMaxSeconds int `toml:"retry_backoff_max_seconds"`
}

// Scheduler contains configuration for the collection polling loop.
type Scheduler struct {
	Enabled      bool `toml:"enabled"`
	TickInterval int  `toml:"tick_interval"`
}

// Collection describes one watched playlist or collection.
type Collection struct {
	ID          string `toml:"id"`
	Source      string `toml:"source"`
	URL         string `toml:"url"`
	MediaType   string `toml:"media_type"`
	Format      string `toml:"format"`
	Destination string `toml:"destination"`
	Interval    int    `toml:"interval"`
	Enabled     bool   `toml:"enabled"`
}

// Spotify contains client credentials for the Spotify playlist source.
type Spotify struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
	APIBaseURL   string `toml:"api_base_url"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobCompleted   bool   `toml:"job_completed"`
	JobFailed      bool   `toml:"job_failed"`
	BindingFailed  bool   `toml:"binding_failed"`
	SchedulerAdded bool   `toml:"scheduler_added"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	// RetentionDays prunes rotated log files older than this; 0 keeps them.
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for tunebind.
//
// Configuration sections by subsystem:
//   - Paths: data, staging, and destination directories
//   - MusicBrainz: metadata authority client and release preferences
//   - Scoring: tunable floors and duration tolerances
//   - Executor: yt-dlp and ffmpeg invocation settings
//   - Workflow: worker polling, heartbeats, and retry policy
//   - Scheduler / Collections: watched playlists and tick interval
//   - Spotify: client credentials for Spotify playlist collections
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	MusicBrainz   MusicBrainz   `toml:"musicbrainz"`
	Scoring       Scoring       `toml:"scoring"`
	Executor      Executor      `toml:"executor"`
	Workflow      Workflow      `toml:"workflow"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Collections   []Collection  `toml:"collections"`
	Spotify       Spotify       `toml:"spotify"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tunebind/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tunebind.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// CreateSample writes the sample configuration to path. It refuses to
// overwrite an existing file.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir and VideoDir are created on a best-effort basis so the daemon
// can run when external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dir := range []string{c.Paths.LibraryDir, c.Paths.VideoDir} {
		if strings.TrimSpace(dir) != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
	}
	return nil
}

// QueueDBPath returns the location of the job queue database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// LockPath returns the location of the single-worker lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "tunebind.lock")
}

// HeartbeatTimeout returns the liveness threshold after which an active job is orphaned.
func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Workflow.HeartbeatTimeout) * time.Second
}

// CollectionByID returns the configured collection with the given identifier.
func (c *Config) CollectionByID(id string) (Collection, bool) {
	id = strings.TrimSpace(id)
	for _, col := range c.Collections {
		if col.ID == id {
			return col, true
		}
	}
	return Collection{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
