// Package canonical derives the deduplication keys of acquisition jobs.
package canonical

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"tunebind/internal/services"
)

const (
	PrefixMusic = "music:"
	PrefixURL   = "url:"
)

// Platform identifies the provider behind a direct URL.
type Platform string

const (
	PlatformYouTube      Platform = "youtube"
	PlatformYouTubeMusic Platform = "youtube_music"
	PlatformSoundCloud   Platform = "soundcloud"
	PlatformBandcamp     Platform = "bandcamp"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// MusicKey is the identity of a bound music job.
func MusicKey(recordingID, releaseID string) (string, error) {
	recordingID = strings.TrimSpace(recordingID)
	releaseID = strings.TrimSpace(releaseID)
	if recordingID == "" || releaseID == "" {
		return "", services.Wrap(services.ErrValidation, "canonical", "music key", "recording and release ids are required", nil)
	}
	return PrefixMusic + recordingID + ":" + releaseID, nil
}

// URLKey is the identity of a direct-URL job.
func URLKey(raw string) (string, error) {
	canonicalURL, _, err := CanonicalURL(raw)
	if err != nil {
		return "", err
	}
	return PrefixURL + canonicalURL, nil
}

func platformOf(u *url.URL) (Platform, bool) {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	switch {
	case host == "music.youtube.com":
		return PlatformYouTubeMusic, true
	case host == "youtube.com" || host == "youtu.be" || host == "youtube-nocookie.com":
		return PlatformYouTube, true
	case host == "soundcloud.com" || strings.HasSuffix(host, ".soundcloud.com"):
		return PlatformSoundCloud, true
	case host == "bandcamp.com" || strings.HasSuffix(host, ".bandcamp.com"):
		return PlatformBandcamp, true
	default:
		return "", false
	}
}

// CanonicalURL normalizes a direct URL so equivalent links compare equal.
// YouTube links reduce to watch?v=<id>; SoundCloud is kept verbatim; Bandcamp
// is forced to https.
func CanonicalURL(raw string) (string, Platform, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", "", services.Wrap(services.ErrValidation, "canonical", "parse url", fmt.Sprintf("invalid url %q", raw), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", services.Wrap(services.ErrValidation, "canonical", "parse url", fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}
	platform, ok := platformOf(parsed)
	if !ok {
		return "", "", services.Wrap(services.ErrValidation, "canonical", "parse url", fmt.Sprintf("unsupported host %q", parsed.Hostname()), nil)
	}
	switch platform {
	case PlatformYouTube, PlatformYouTubeMusic:
		id, ok := youTubeID(parsed)
		if !ok {
			return "", "", services.Wrap(services.ErrValidation, "canonical", "parse url", "youtube url carries no video id", nil)
		}
		return "https://www.youtube.com/watch?v=" + id, platform, nil
	case PlatformBandcamp:
		parsed.Scheme = "https"
		return parsed.String(), platform, nil
	default:
		return raw, platform, nil
	}
}

func youTubeID(u *url.URL) (string, bool) {
	if v := u.Query().Get("v"); videoIDPattern.MatchString(v) {
		return v, true
	}
	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" && len(segments) > 0 && videoIDPattern.MatchString(segments[0]) {
		return segments[0], true
	}
	if len(segments) >= 2 {
		switch segments[0] {
		case "shorts", "embed", "live", "v":
			if videoIDPattern.MatchString(segments[1]) {
				return segments[1], true
			}
		}
	}
	return "", false
}

// IsMusicKey reports whether key was built by MusicKey.
func IsMusicKey(key string) bool { return strings.HasPrefix(key, PrefixMusic) }
