package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"tunebind/internal/config"
	"tunebind/internal/services"
)

const spotifyPageLimit = 100

// SpotifyPlaylist enumerates Spotify playlists with the client credentials
// flow. Only public playlist contents are reachable this way.
type SpotifyPlaylist struct {
	apiBase string
	oauth   clientcredentials.Config
	client  *http.Client
}

// NewSpotifyPlaylist builds the adapter. A nil base client uses
// http.DefaultClient for token and API requests.
func NewSpotifyPlaylist(cfg config.Spotify, base *http.Client) *SpotifyPlaylist {
	if base == nil {
		base = http.DefaultClient
	}
	return &SpotifyPlaylist{
		apiBase: strings.TrimRight(cfg.APIBaseURL, "/"),
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		},
		client: base,
	}
}

// SpotifyPlaylistID extracts the playlist id from an open.spotify.com URL or
// a spotify:playlist: URI.
func SpotifyPlaylistID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, "spotify:playlist:"); ok {
		return rest, rest != ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "playlist" && parts[i+1] != "" {
			return parts[i+1], true
		}
	}
	return "", false
}

type spotifyPage struct {
	Items []struct {
		Track *struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			DurationMS int    `json:"duration_ms"`
			IsLocal    bool   `json:"is_local"`
			Artists    []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name string `json:"name"`
			} `json:"album"`
			ExternalURLs struct {
				Spotify string `json:"spotify"`
			} `json:"external_urls"`
		} `json:"track"`
	} `json:"items"`
	Next string `json:"next"`
}

// Items implements CollectionSource, following pagination to the end.
func (s *SpotifyPlaylist) Items(ctx context.Context, col config.Collection) ([]Item, error) {
	id, ok := SpotifyPlaylistID(col.URL)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "sources", "spotify playlist",
			"collection "+col.ID+" url is not a spotify playlist", nil)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	client := s.oauth.Client(ctx)

	next := fmt.Sprintf("%s/playlists/%s/tracks?limit=%d", s.apiBase, url.PathEscape(id), spotifyPageLimit)
	var items []Item
	seen := map[string]struct{}{}
	for next != "" {
		page, err := s.fetchPage(ctx, client, next)
		if err != nil {
			return nil, err
		}
		for _, entry := range page.Items {
			track := entry.Track
			if track == nil || track.IsLocal || track.ID == "" {
				continue
			}
			if _, dup := seen[track.ID]; dup {
				continue
			}
			seen[track.ID] = struct{}{}
			var artist string
			if len(track.Artists) > 0 {
				artist = track.Artists[0].Name
			}
			items = append(items, Item{
				ID:         track.ID,
				URL:        track.ExternalURLs.Spotify,
				Title:      track.Name,
				Artist:     artist,
				Album:      track.Album.Name,
				DurationMS: track.DurationMS,
			})
		}
		next = page.Next
	}
	return items, nil
}

func (s *SpotifyPlaylist) fetchPage(ctx context.Context, client *http.Client, endpoint string) (*spotifyPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build spotify request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "sources", "spotify playlist", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "sources", "spotify playlist", "playlist not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, "sources", "spotify playlist", fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrPermanent, "sources", "spotify playlist",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var page spotifyPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, services.Wrap(services.ErrTransient, "sources", "spotify playlist", "decode page", err)
	}
	return &page, nil
}
