package binding_test

import (
	"context"
	"testing"

	"tunebind/internal/binding"
	"tunebind/internal/musicbrainz"
)

func albumFixture() *fakeAuthority {
	fake := newFakeAuthority()
	fake.groups["rg-1"] = &musicbrainz.ReleaseGroup{
		ID:          "rg-1",
		Title:       "Album Z",
		PrimaryType: "Album",
		Releases: []musicbrainz.Release{
			{ID: "rel-late", Status: "Official", Date: "2005-01-01", Country: "US"},
			{ID: "rel-early", Status: "Official", Date: "1999-06-01", Country: "GB"},
			{ID: "rel-promo", Status: "Promotion", Date: "1999-01-01", Country: "US"},
		},
	}
	for _, id := range []string{"rel-late", "rel-early"} {
		fake.releases[id] = &musicbrainz.Release{
			ID:           id,
			Title:        "Album Z",
			Status:       "Official",
			Date:         "1999-06-01",
			ArtistCredit: credit("Artist X"),
			ReleaseGroup: &musicbrainz.ReleaseGroup{ID: "rg-1", PrimaryType: "Album"},
			Media: []musicbrainz.Medium{
				{Position: 1, Tracks: []musicbrainz.Track{
					{Position: 1, Title: "Opener", Length: 180000, Recording: musicbrainz.Recording{ID: "rec-a"}},
					{Position: 2, Title: "Track Y", Length: 200000, Recording: musicbrainz.Recording{ID: "rec-b"}},
				}},
				{Position: 2, Tracks: []musicbrainz.Track{
					{Position: 1, Title: "Bonus", Length: 150000, ArtistCredit: credit("Artist X feat. Guest"), Recording: musicbrainz.Recording{ID: "rec-c"}},
				}},
			},
		}
	}
	return fake
}

func TestExpandAlbumPicksEarliestOfficialRelease(t *testing.T) {
	expansion, err := binding.New(albumFixture()).ExpandAlbum(context.Background(), "rg-1")
	if err != nil {
		t.Fatalf("ExpandAlbum failed: %v", err)
	}
	if expansion.ReleaseID != "rel-early" {
		t.Fatalf("expected earliest official release, got %s", expansion.ReleaseID)
	}
	if len(expansion.Pairs) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(expansion.Pairs))
	}
	for _, pair := range expansion.Pairs {
		if !pair.Complete() {
			t.Fatalf("incomplete pair %+v", pair)
		}
	}
	bonus := expansion.Pairs[2]
	if bonus.DiscNumber != 2 || bonus.TrackNumber != 1 || bonus.ArtistCredit != "Artist X feat. Guest" || bonus.AlbumArtist != "Artist X" {
		t.Fatalf("unexpected bonus pair %+v", bonus)
	}
}

func TestExpandAlbumReleaseGroupNotFound(t *testing.T) {
	_, err := binding.New(newFakeAuthority()).ExpandAlbum(context.Background(), "rg-missing")
	failure, ok := binding.AsFailure(err)
	if !ok || failure.Reason != binding.ReasonReleaseGroupNotFound {
		t.Fatalf("expected release_group_not_found, got %v", err)
	}
}

func TestExpandAlbumRejectsExcludedGroup(t *testing.T) {
	fake := albumFixture()
	for _, rel := range fake.releases {
		rel.ReleaseGroup.SecondaryTypes = []string{"Live"}
	}
	_, err := binding.New(fake).ExpandAlbum(context.Background(), "rg-1")
	failure, ok := binding.AsFailure(err)
	if !ok || failure.Reason != binding.ReasonNoOfficialAlbum {
		t.Fatalf("expected no_official_album, got %v", err)
	}
}
