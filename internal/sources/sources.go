package sources

import (
	"context"
	"fmt"
	"strings"

	"tunebind/internal/config"
	"tunebind/internal/services"
)

// Item is one entry of a watched collection.
type Item struct {
	// ID is the provider's stable identifier, used for snapshots.
	ID         string
	URL        string
	Title      string
	Artist     string
	Album      string
	DurationMS int
}

// CollectionSource enumerates the current items of a collection.
type CollectionSource interface {
	Items(ctx context.Context, col config.Collection) ([]Item, error)
}

// Registry maps a collection's source name to its adapter.
type Registry map[string]CollectionSource

// For returns the adapter for col.
func (r Registry) For(col config.Collection) (CollectionSource, error) {
	src, ok := r[strings.ToLower(strings.TrimSpace(col.Source))]
	if !ok || src == nil {
		return nil, services.Wrap(services.ErrConfiguration, "sources", "lookup",
			fmt.Sprintf("no source adapter for %q (collection %s)", col.Source, col.ID), nil)
	}
	return src, nil
}

// NewRegistry wires the adapters available under cfg. Spotify is registered
// only when credentials are configured.
func NewRegistry(cfg *config.Config) Registry {
	reg := Registry{"youtube": NewYouTubePlaylist(nil)}
	if strings.TrimSpace(cfg.Spotify.ClientID) != "" && strings.TrimSpace(cfg.Spotify.ClientSecret) != "" {
		reg["spotify"] = NewSpotifyPlaylist(cfg.Spotify, nil)
	}
	return reg
}
