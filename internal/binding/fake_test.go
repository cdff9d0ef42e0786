package binding_test

import (
	"context"

	"tunebind/internal/musicbrainz"
	"tunebind/internal/services"
)

type fakeAuthority struct {
	searches   int
	search     []musicbrainz.Recording
	recordings map[string]*musicbrainz.Recording
	releases   map[string]*musicbrainz.Release
	groups     map[string]*musicbrainz.ReleaseGroup
	err        error
}

func newFakeAuthority() *fakeAuthority {
	return &fakeAuthority{
		recordings: map[string]*musicbrainz.Recording{},
		releases:   map[string]*musicbrainz.Release{},
		groups:     map[string]*musicbrainz.ReleaseGroup{},
	}
}

func (f *fakeAuthority) SearchRecordings(_ context.Context, _ musicbrainz.RecordingQuery) ([]musicbrainz.Recording, error) {
	f.searches++
	if f.err != nil {
		return nil, f.err
	}
	return f.search, nil
}

func (f *fakeAuthority) GetRecording(_ context.Context, id string, _ []string) (*musicbrainz.Recording, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.recordings[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "musicbrainz", "lookup recording", id, nil)
	}
	return rec, nil
}

func (f *fakeAuthority) GetRelease(_ context.Context, id string, _ []string) (*musicbrainz.Release, error) {
	rel, ok := f.releases[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "musicbrainz", "lookup release", id, nil)
	}
	return rel, nil
}

func (f *fakeAuthority) GetReleaseGroup(_ context.Context, id string, _ []string) (*musicbrainz.ReleaseGroup, error) {
	group, ok := f.groups[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "musicbrainz", "lookup release-group", id, nil)
	}
	return group, nil
}

func credit(name string) []musicbrainz.ArtistCredit {
	return []musicbrainz.ArtistCredit{{Name: name}}
}

type releaseSpec struct {
	id        string
	title     string
	status    string
	primary   string
	secondary []string
	country   string
	date      string
	track     int
}

// addPair registers a recording on a release at the given track position.
func (f *fakeAuthority) addPair(recordingID, title string, lengthMS int, spec releaseSpec) {
	rec, ok := f.recordings[recordingID]
	if !ok {
		rec = &musicbrainz.Recording{
			ID:           recordingID,
			Title:        title,
			Length:       lengthMS,
			ArtistCredit: credit("Artist X"),
		}
		f.recordings[recordingID] = rec
		f.search = append(f.search, musicbrainz.Recording{ID: recordingID, Title: title})
	}
	rec.Releases = append(rec.Releases, musicbrainz.Release{ID: spec.id})

	status := spec.status
	if status == "" {
		status = "Official"
	}
	track := spec.track
	if track == 0 {
		track = 1
	}
	f.releases[spec.id] = &musicbrainz.Release{
		ID:           spec.id,
		Title:        spec.title,
		Status:       status,
		Date:         spec.date,
		Country:      spec.country,
		ArtistCredit: credit("Artist X"),
		ReleaseGroup: &musicbrainz.ReleaseGroup{
			ID:             "rg-" + spec.id,
			Title:          spec.title,
			PrimaryType:    spec.primary,
			SecondaryTypes: spec.secondary,
		},
		Media: []musicbrainz.Medium{{
			Position: 1,
			Tracks: []musicbrainz.Track{{
				Position:  track,
				Title:     title,
				Length:    lengthMS,
				Recording: musicbrainz.Recording{ID: recordingID},
			}},
		}},
	}
}
