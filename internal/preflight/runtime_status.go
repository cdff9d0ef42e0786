package preflight

import (
	"context"
	"strings"

	"tunebind/internal/config"
)

// CheckMusicBrainzFromConfig evaluates authority status for status views.
func CheckMusicBrainzFromConfig(ctx context.Context, cfg *config.Config) Result {
	if cfg == nil {
		return Result{Name: "MusicBrainz", Detail: "Unknown"}
	}
	return CheckMusicBrainz(ctx, cfg.MusicBrainz)
}

// CheckSpotifyFromConfig evaluates Spotify status for status views. An
// unconfigured Spotify integration passes as disabled.
func CheckSpotifyFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Spotify"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Spotify.ClientID) == "" && strings.TrimSpace(cfg.Spotify.ClientSecret) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return CheckSpotify(ctx, cfg.Spotify)
}

// CheckNotificationsFromConfig reports whether push notifications are wired.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return Result{Name: name, Detail: "ntfy_topic must be a full http(s) url"}
	}
	return Result{Name: name, Passed: true, Detail: topic}
}
