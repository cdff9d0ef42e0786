package sources

import (
	"context"
	"net/url"
	"strings"

	"github.com/ytget/ytdlp/v2"

	"tunebind/internal/config"
	"tunebind/internal/services"
)

const youtubeWatchURL = "https://www.youtube.com/watch?v="

// PlaylistEntry is the subset of a playlist item the adapter reads.
type PlaylistEntry struct {
	VideoID string
	Title   string
}

// PlaylistLister fetches every entry of a YouTube playlist.
type PlaylistLister func(ctx context.Context, playlistID string) ([]PlaylistEntry, error)

// YouTubePlaylist enumerates YouTube and YouTube Music playlists.
type YouTubePlaylist struct {
	list PlaylistLister
}

// NewYouTubePlaylist returns an adapter using list, or the ytdlp library
// client when list is nil.
func NewYouTubePlaylist(list PlaylistLister) *YouTubePlaylist {
	if list == nil {
		list = ytdlpLister
	}
	return &YouTubePlaylist{list: list}
}

func ytdlpLister(ctx context.Context, playlistID string) ([]PlaylistEntry, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]PlaylistEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, PlaylistEntry{VideoID: it.VideoID, Title: it.Title})
	}
	return entries, nil
}

// PlaylistID extracts the list= parameter from a playlist URL.
func PlaylistID(raw string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(parsed.Query().Get("list"))
	return id, id != ""
}

// Items implements CollectionSource. Entries are returned in playlist order
// with duplicates removed; titles are split into artist and title when they
// carry an "Artist - Title" prefix.
func (y *YouTubePlaylist) Items(ctx context.Context, col config.Collection) ([]Item, error) {
	id, ok := PlaylistID(col.URL)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "sources", "youtube playlist",
			"collection "+col.ID+" url has no list= parameter", nil)
	}
	entries, err := y.list(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "sources", "youtube playlist", "list "+id, err)
	}
	seen := make(map[string]struct{}, len(entries))
	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		videoID := strings.TrimSpace(entry.VideoID)
		if videoID == "" {
			continue
		}
		if _, dup := seen[videoID]; dup {
			continue
		}
		seen[videoID] = struct{}{}
		artist, title := SplitArtistTitle(entry.Title)
		items = append(items, Item{
			ID:     videoID,
			URL:    youtubeWatchURL + videoID,
			Title:  title,
			Artist: artist,
		})
	}
	return items, nil
}
