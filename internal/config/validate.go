package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownCollectionSources = map[string]struct{}{
	"youtube": {},
	"spotify": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMusicBrainz(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateExecutor(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateCollections(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMusicBrainz() error {
	if c.MusicBrainz.UserAgent == "" {
		return errors.New("musicbrainz.user_agent is required; the authority rejects anonymous clients")
	}
	if c.MusicBrainz.MinIntervalMS < 0 {
		return errors.New("musicbrainz.min_interval_ms must be >= 0")
	}
	if c.MusicBrainz.TimeoutSeconds <= 0 {
		return errors.New("musicbrainz.timeout_seconds must be positive")
	}
	if c.MusicBrainz.CacheTTLSeconds < 0 {
		return errors.New("musicbrainz.cache_ttl_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateScoring() error {
	s := c.Scoring
	if s.CorrectnessFloor < 0 || s.CorrectnessFloor > 100 {
		return errors.New("scoring.correctness_floor must be between 0 and 100")
	}
	for name, value := range map[string]float64{
		"scoring.title_floor":             s.TitleFloor,
		"scoring.artist_floor":            s.ArtistFloor,
		"scoring.compilation_album_floor": s.CompilationAlbumFloor,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if s.StrictDurationToleranceMS <= 0 {
		return errors.New("scoring.strict_duration_tolerance_ms must be positive")
	}
	if s.AlbumDurationToleranceMS < s.StrictDurationToleranceMS {
		return errors.New("scoring.album_duration_tolerance_ms must be >= scoring.strict_duration_tolerance_ms")
	}
	if s.TieEpsilon < 0 {
		return errors.New("scoring.tie_epsilon must be >= 0")
	}
	return nil
}

func (c *Config) validateExecutor() error {
	switch c.Executor.AudioFormat {
	case "mp3", "m4a", "flac", "opus":
	default:
		return fmt.Errorf("executor.audio_format %q is not supported (mp3, m4a, flac, opus)", c.Executor.AudioFormat)
	}
	switch c.Executor.VideoContainer {
	case "webm", "mp4", "mkv":
	default:
		return fmt.Errorf("executor.video_container %q is not supported (webm, mp4, mkv)", c.Executor.VideoContainer)
	}
	if c.Executor.TimeoutSeconds < 0 {
		return errors.New("executor.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.MaxAttempts <= 0 {
		return errors.New("workflow.max_attempts must be positive")
	}
	if c.Workflow.RetryBackoffSeconds < 0 || c.Workflow.RetryBackoffMaxSeconds < c.Workflow.RetryBackoffSeconds {
		return errors.New("workflow.retry_backoff_max_seconds must be >= workflow.retry_backoff_seconds >= 0")
	}
	if c.Scheduler.TickInterval <= 0 {
		return errors.New("scheduler.tick_interval must be positive")
	}
	return nil
}

func (c *Config) validateCollections() error {
	seen := make(map[string]struct{}, len(c.Collections))
	for i, col := range c.Collections {
		if col.ID == "" {
			return fmt.Errorf("collections[%d].id must be set", i)
		}
		if _, dup := seen[col.ID]; dup {
			return fmt.Errorf("collections[%d].id %q is duplicated", i, col.ID)
		}
		seen[col.ID] = struct{}{}
		if _, ok := knownCollectionSources[col.Source]; !ok {
			return fmt.Errorf("collections[%d].source %q is not supported", i, col.Source)
		}
		if col.URL == "" {
			return fmt.Errorf("collections[%d].url must be set", i)
		}
		switch col.MediaType {
		case "music", "video":
		default:
			return fmt.Errorf("collections[%d].media_type %q must be music or video", i, col.MediaType)
		}
		if col.Source == "spotify" && col.MediaType != "music" {
			return fmt.Errorf("collections[%d]: spotify collections must use media_type music", i)
		}
		if col.Source == "spotify" && col.Enabled && (strings.TrimSpace(c.Spotify.ClientID) == "" || strings.TrimSpace(c.Spotify.ClientSecret) == "") {
			return fmt.Errorf("collections[%d]: spotify.client_id and spotify.client_secret are required (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)", i)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
