package bench

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"

	"tunebind/internal/musicbrainz"
	"tunebind/internal/services"
	"tunebind/internal/textutil"
)

// fixtureAuthority serves a corpus as a musicbrainz.Authority. Search hits
// are shuffled with the current run's seed.
type fixtureAuthority struct {
	recordings map[string]*musicbrainz.Recording
	releases   map[string]*musicbrainz.Release
	groups     map[string]*musicbrainz.ReleaseGroup
	hits       []musicbrainz.Recording

	mu       sync.Mutex
	rng      *rand.Rand
	searches int
}

func newFixtureAuthority(c *Corpus) *fixtureAuthority {
	a := &fixtureAuthority{
		recordings: make(map[string]*musicbrainz.Recording),
		releases:   make(map[string]*musicbrainz.Release),
		groups:     make(map[string]*musicbrainz.ReleaseGroup),
		rng:        rand.New(rand.NewPCG(1, 1)),
	}
	for _, fr := range c.Releases {
		a.addRelease(fr)
	}
	for _, rec := range a.recordings {
		a.hits = append(a.hits, musicbrainz.Recording{
			ID:           rec.ID,
			Title:        rec.Title,
			Length:       rec.Length,
			ArtistCredit: rec.ArtistCredit,
		})
	}
	slices.SortFunc(a.hits, func(x, y musicbrainz.Recording) int { return cmp.Compare(x.ID, y.ID) })
	return a
}

func (a *fixtureAuthority) addRelease(fr Release) {
	status := fr.Status
	if status == "" {
		status = "Official"
	}
	groupID := fr.ReleaseGroupID
	if groupID == "" {
		groupID = "rg-" + fr.ID
	}
	group, ok := a.groups[groupID]
	if !ok {
		group = &musicbrainz.ReleaseGroup{
			ID:               groupID,
			Title:            fr.Title,
			PrimaryType:      fr.PrimaryType,
			SecondaryTypes:   fr.SecondaryTypes,
			FirstReleaseDate: fr.Date,
			ArtistCredit:     credit(fr.Artist),
		}
		a.groups[groupID] = group
	}
	if group.FirstReleaseDate == "" || (fr.Date != "" && fr.Date < group.FirstReleaseDate) {
		group.FirstReleaseDate = fr.Date
	}

	rel := &musicbrainz.Release{
		ID:           fr.ID,
		Title:        fr.Title,
		Status:       status,
		Date:         fr.Date,
		Country:      fr.Country,
		ArtistCredit: credit(fr.Artist),
		ReleaseGroup: &musicbrainz.ReleaseGroup{
			ID:             groupID,
			Title:          group.Title,
			PrimaryType:    fr.PrimaryType,
			SecondaryTypes: fr.SecondaryTypes,
		},
	}
	media := map[int]*musicbrainz.Medium{}
	for i, tr := range fr.Tracks {
		disc := cmp.Or(tr.Disc, 1)
		position := cmp.Or(tr.Position, i+1)
		medium, ok := media[disc]
		if !ok {
			medium = &musicbrainz.Medium{Position: disc}
			media[disc] = medium
		}
		medium.Tracks = append(medium.Tracks, musicbrainz.Track{
			Position:  position,
			Number:    strconv.Itoa(position),
			Title:     tr.Title,
			Length:    tr.LengthMS,
			Recording: musicbrainz.Recording{ID: tr.Recording},
		})
		medium.TrackCount = len(medium.Tracks)

		rec, ok := a.recordings[tr.Recording]
		if !ok {
			rec = &musicbrainz.Recording{
				ID:           tr.Recording,
				Title:        tr.Title,
				Length:       tr.LengthMS,
				ArtistCredit: credit(cmp.Or(tr.Artist, fr.Artist)),
			}
			a.recordings[tr.Recording] = rec
		}
		rec.Releases = append(rec.Releases, musicbrainz.Release{ID: fr.ID, Title: fr.Title, Status: status, Date: fr.Date, Country: fr.Country})
	}
	discs := make([]int, 0, len(media))
	for d := range media {
		discs = append(discs, d)
	}
	slices.Sort(discs)
	for _, d := range discs {
		rel.Media = append(rel.Media, *media[d])
	}
	a.releases[fr.ID] = rel

	group.Releases = append(group.Releases, musicbrainz.Release{
		ID: rel.ID, Title: rel.Title, Status: rel.Status, Date: rel.Date, Country: rel.Country,
	})
}

func credit(name string) []musicbrainz.ArtistCredit {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return []musicbrainz.ArtistCredit{{Name: name}}
}

// reseed makes subsequent searches deterministic for run.
func (a *fixtureAuthority) reseed(run int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rng = rand.New(rand.NewPCG(uint64(run)+1, 0x7475_6e65))
}

// SearchRecordings matches on normalized title containment and, when given,
// artist containment.
func (a *fixtureAuthority) SearchRecordings(_ context.Context, q musicbrainz.RecordingQuery) ([]musicbrainz.Recording, error) {
	title := textutil.Normalize(q.Title)
	artist := textutil.Normalize(q.Artist)
	var out []musicbrainz.Recording
	for _, hit := range a.hits {
		if title != "" && !strings.Contains(textutil.Normalize(hit.Title), title) {
			continue
		}
		if artist != "" && !strings.Contains(textutil.Normalize(musicbrainz.CreditString(hit.ArtistCredit)), artist) {
			continue
		}
		out = append(out, hit)
	}
	a.mu.Lock()
	a.searches++
	a.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	a.mu.Unlock()
	return out, nil
}

func (a *fixtureAuthority) GetRecording(_ context.Context, id string, _ []string) (*musicbrainz.Recording, error) {
	rec, ok := a.recordings[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "bench", "lookup recording", id, nil)
	}
	clone := *rec
	return &clone, nil
}

func (a *fixtureAuthority) GetRelease(_ context.Context, id string, _ []string) (*musicbrainz.Release, error) {
	rel, ok := a.releases[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "bench", "lookup release", id, nil)
	}
	clone := *rel
	return &clone, nil
}

func (a *fixtureAuthority) GetReleaseGroup(_ context.Context, id string, _ []string) (*musicbrainz.ReleaseGroup, error) {
	group, ok := a.groups[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "bench", "lookup release-group", id, nil)
	}
	clone := *group
	return &clone, nil
}
