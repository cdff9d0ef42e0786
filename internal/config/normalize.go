package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMusicBrainz()
	c.normalizeExecutor()
	if err := c.normalizeCollections(); err != nil {
		return err
	}
	c.normalizeSpotify()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.VideoDir, err = expandPath(c.Paths.VideoDir); err != nil {
		return fmt.Errorf("paths.video_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMusicBrainz() {
	if value, ok := os.LookupEnv("TUNEBIND_MUSICBRAINZ_USER_AGENT"); ok && strings.TrimSpace(value) != "" {
		c.MusicBrainz.UserAgent = strings.TrimSpace(value)
	}
	c.MusicBrainz.BaseURL = strings.TrimRight(strings.TrimSpace(c.MusicBrainz.BaseURL), "/")
	if c.MusicBrainz.BaseURL == "" {
		c.MusicBrainz.BaseURL = defaultMusicBrainzBaseURL
	}
	c.MusicBrainz.UserAgent = strings.TrimSpace(c.MusicBrainz.UserAgent)
	c.MusicBrainz.PreferredCountry = strings.ToUpper(strings.TrimSpace(c.MusicBrainz.PreferredCountry))
	if c.MusicBrainz.SearchLimit <= 0 {
		c.MusicBrainz.SearchLimit = defaultMusicBrainzSearchLimit
	}
}

func (c *Config) normalizeExecutor() {
	c.Executor.Binary = strings.TrimSpace(c.Executor.Binary)
	if c.Executor.Binary == "" {
		c.Executor.Binary = defaultExecutorBinary
	}
	c.Executor.FFmpegBinary = strings.TrimSpace(c.Executor.FFmpegBinary)
	if c.Executor.FFmpegBinary == "" {
		c.Executor.FFmpegBinary = defaultFFmpegBinary
	}
	c.Executor.AudioFormat = strings.ToLower(strings.TrimSpace(c.Executor.AudioFormat))
	if c.Executor.AudioFormat == "" {
		c.Executor.AudioFormat = defaultAudioFormat
	}
	c.Executor.VideoContainer = strings.ToLower(strings.TrimSpace(c.Executor.VideoContainer))
	if c.Executor.VideoContainer == "" {
		c.Executor.VideoContainer = defaultVideoContainer
	}
	if strings.TrimSpace(c.Executor.OutputTemplate) == "" {
		c.Executor.OutputTemplate = defaultOutputTemplate
	}
	if c.Executor.SearchLimit <= 0 {
		c.Executor.SearchLimit = defaultExecutorSearchLimit
	}
}

func (c *Config) normalizeCollections() error {
	for i := range c.Collections {
		col := &c.Collections[i]
		col.ID = strings.TrimSpace(col.ID)
		col.Source = strings.ToLower(strings.TrimSpace(col.Source))
		col.URL = strings.TrimSpace(col.URL)
		col.MediaType = strings.ToLower(strings.TrimSpace(col.MediaType))
		if col.MediaType == "" {
			col.MediaType = "music"
		}
		col.Format = strings.ToLower(strings.TrimSpace(col.Format))
		if col.Interval <= 0 {
			col.Interval = defaultCollectionInterval
		}
		if strings.TrimSpace(col.Destination) != "" {
			expanded, err := expandPath(col.Destination)
			if err != nil {
				return fmt.Errorf("collections[%d].destination: %w", i, err)
			}
			col.Destination = expanded
		}
	}
	return nil
}

func (c *Config) normalizeSpotify() {
	if c.Spotify.ClientID == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_ID"); ok {
			c.Spotify.ClientID = strings.TrimSpace(value)
		}
	}
	if c.Spotify.ClientSecret == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_SECRET"); ok {
			c.Spotify.ClientSecret = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Spotify.TokenURL) == "" {
		c.Spotify.TokenURL = defaultSpotifyTokenURL
	}
	c.Spotify.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Spotify.APIBaseURL), "/")
	if c.Spotify.APIBaseURL == "" {
		c.Spotify.APIBaseURL = defaultSpotifyAPIBaseURL
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
