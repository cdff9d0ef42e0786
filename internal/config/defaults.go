package config

const (
	defaultDataDir                   = "~/.local/share/tunebind"
	defaultStagingDir                = "~/.local/share/tunebind/staging"
	defaultLibraryDir                = "~/Music"
	defaultVideoDir                  = "~/Videos/tunebind"
	defaultLogDir                    = "~/.local/share/tunebind/logs"
	defaultMusicBrainzBaseURL        = "https://musicbrainz.org/ws/2"
	defaultMusicBrainzUserAgent      = "tunebind/0.1 (+https://github.com/tunebind/tunebind)"
	defaultMusicBrainzMinIntervalMS  = 1000
	defaultMusicBrainzTimeoutSeconds = 10
	defaultMusicBrainzCacheTTL       = 24 * 60 * 60
	defaultMusicBrainzSearchLimit    = 10
	defaultPreferredCountry          = "US"
	defaultCorrectnessFloor          = 62
	defaultTitleFloor                = 0.70
	defaultArtistFloor               = 0.60
	defaultStrictDurationToleranceMS = 12000
	defaultAlbumDurationToleranceMS  = 35000
	defaultCompilationAlbumFloor     = 0.40
	defaultTieEpsilon                = 1e-6
	defaultExecutorBinary            = "yt-dlp"
	defaultFFmpegBinary              = "ffmpeg"
	defaultAudioFormat               = "mp3"
	defaultVideoContainer            = "webm"
	defaultOutputTemplate            = "%(title).200s-%(id)s.%(ext)s"
	defaultExecutorTimeoutSeconds    = 1800
	defaultExecutorSearchLimit       = 6
	defaultSpotifyTokenURL           = "https://accounts.spotify.com/api/token"
	defaultSpotifyAPIBaseURL         = "https://api.spotify.com/v1"
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 14
	defaultNotifyRequestTimeout      = 10
	defaultSchedulerTickInterval     = 300
	defaultCollectionInterval        = 3600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			VideoDir:   defaultVideoDir,
			LogDir:     defaultLogDir,
		},
		MusicBrainz: MusicBrainz{
			BaseURL:          defaultMusicBrainzBaseURL,
			UserAgent:        defaultMusicBrainzUserAgent,
			MinIntervalMS:    defaultMusicBrainzMinIntervalMS,
			TimeoutSeconds:   defaultMusicBrainzTimeoutSeconds,
			PreferredCountry: defaultPreferredCountry,
			CacheTTLSeconds:  defaultMusicBrainzCacheTTL,
			SearchLimit:      defaultMusicBrainzSearchLimit,
		},
		Scoring: Scoring{
			CorrectnessFloor:          defaultCorrectnessFloor,
			TitleFloor:                defaultTitleFloor,
			ArtistFloor:               defaultArtistFloor,
			StrictDurationToleranceMS: defaultStrictDurationToleranceMS,
			AlbumDurationToleranceMS:  defaultAlbumDurationToleranceMS,
			CompilationAlbumFloor:     defaultCompilationAlbumFloor,
			TieEpsilon:                defaultTieEpsilon,
		},
		Executor: Executor{
			Binary:         defaultExecutorBinary,
			FFmpegBinary:   defaultFFmpegBinary,
			AudioFormat:    defaultAudioFormat,
			VideoContainer: defaultVideoContainer,
			OutputTemplate: defaultOutputTemplate,
			TimeoutSeconds: defaultExecutorTimeoutSeconds,
			SearchLimit:    defaultExecutorSearchLimit,
		},
		Workflow: Workflow{
			QueuePollInterval:      5,
			ErrorRetryInterval:     10,
			HeartbeatInterval:      15,
			HeartbeatTimeout:       120,
			MaxAttempts:            3,
			RetryBackoffSeconds:    30,
			RetryBackoffMaxSeconds: 900,
		},
		Scheduler: Scheduler{
			Enabled:      true,
			TickInterval: defaultSchedulerTickInterval,
		},
		Spotify: Spotify{
			TokenURL:   defaultSpotifyTokenURL,
			APIBaseURL: defaultSpotifyAPIBaseURL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobCompleted:   true,
			JobFailed:      true,
			BindingFailed:  true,
			SchedulerAdded: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
