package sources_test

import (
	"context"
	"errors"
	"testing"

	"tunebind/internal/config"
	"tunebind/internal/services"
	"tunebind/internal/sources"
)

func TestPlaylistID(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/playlist?list=PL123", "PL123", true},
		{"https://music.youtube.com/playlist?list=OLAK5uy_x&feature=share", "OLAK5uy_x", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLmix", "PLmix", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "", false},
		{"::not a url", "", false},
	}
	for _, tc := range cases {
		got, ok := sources.PlaylistID(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("PlaylistID(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestYouTubePlaylistItems(t *testing.T) {
	var requested string
	lister := func(_ context.Context, id string) ([]sources.PlaylistEntry, error) {
		requested = id
		return []sources.PlaylistEntry{
			{VideoID: "aaaaaaaaaaa", Title: "Artist One - First Song"},
			{VideoID: "bbbbbbbbbbb", Title: "Untitled jam"},
			{VideoID: "aaaaaaaaaaa", Title: "Artist One - First Song"},
			{VideoID: "", Title: "deleted video"},
		}, nil
	}
	src := sources.NewYouTubePlaylist(lister)
	items, err := src.Items(context.Background(), config.Collection{ID: "mix", URL: "https://www.youtube.com/playlist?list=PLabc"})
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if requested != "PLabc" {
		t.Fatalf("expected lister to receive PLabc, got %q", requested)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 unique items, got %d: %+v", len(items), items)
	}
	first := items[0]
	if first.ID != "aaaaaaaaaaa" || first.Artist != "Artist One" || first.Title != "First Song" {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if first.URL != "https://www.youtube.com/watch?v=aaaaaaaaaaa" {
		t.Fatalf("unexpected url: %q", first.URL)
	}
	if items[1].Artist != "" || items[1].Title != "Untitled jam" {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
}

func TestYouTubePlaylistErrors(t *testing.T) {
	src := sources.NewYouTubePlaylist(func(context.Context, string) ([]sources.PlaylistEntry, error) {
		return nil, errors.New("connection reset")
	})
	_, err := src.Items(context.Background(), config.Collection{ID: "bad", URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing list id, got %v", err)
	}
	_, err = src.Items(context.Background(), config.Collection{ID: "mix", URL: "https://www.youtube.com/playlist?list=PL1"})
	if services.FailureClass(err) != services.DispositionRetry {
		t.Fatalf("expected lister failure to be retryable, got %v", err)
	}
}

func TestRegistryFor(t *testing.T) {
	cfg := config.Default()
	reg := sources.NewRegistry(&cfg)
	if _, err := reg.For(config.Collection{ID: "a", Source: "YouTube"}); err != nil {
		t.Fatalf("expected youtube adapter, got %v", err)
	}
	if _, err := reg.For(config.Collection{ID: "b", Source: "spotify"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected spotify to be unregistered without credentials, got %v", err)
	}
	cfg.Spotify.ClientID = "id"
	cfg.Spotify.ClientSecret = "secret"
	reg = sources.NewRegistry(&cfg)
	if _, err := reg.For(config.Collection{ID: "b", Source: "spotify"}); err != nil {
		t.Fatalf("expected spotify adapter with credentials, got %v", err)
	}
}
