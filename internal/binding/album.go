package binding

import (
	"context"
	"errors"
	"sort"
	"strings"

	"tunebind/internal/logging"
	"tunebind/internal/musicbrainz"
	"tunebind/internal/release"
	"tunebind/internal/services"
)

// AlbumExpansion is the ordered track list of the release chosen to stand
// for a release group.
type AlbumExpansion struct {
	ReleaseGroupID string
	ReleaseID      string
	Album          string
	Bucket         release.Bucket
	Pairs          []BoundPair
}

type releaseChoice struct {
	stub  musicbrainz.Release
	score float64
}

// ExpandAlbum picks the best release of a release group and binds every
// track on it. Each returned pair is complete.
func (r *Resolver) ExpandAlbum(ctx context.Context, releaseGroupID string) (*AlbumExpansion, error) {
	releaseGroupID = strings.TrimSpace(releaseGroupID)
	if releaseGroupID == "" {
		return nil, &Failure{Reason: ReasonInvalidIntent, Reasons: []Reason{ReasonInvalidIntent}, Detail: "release group id is required"}
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String("release_group_id", releaseGroupID))

	group, err := r.authority.GetReleaseGroup(ctx, releaseGroupID, musicbrainz.ReleaseGroupIncludes)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, &Failure{Reason: ReasonReleaseGroupNotFound, Reasons: []Reason{ReasonReleaseGroupNotFound}, Detail: releaseGroupID}
		}
		return nil, err
	}

	reasons := reasonSet{}
	for _, choice := range r.rankReleases(group) {
		rel, err := r.authority.GetRelease(ctx, choice.stub.ID, musicbrainz.ReleaseIncludes)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if rel.ReleaseGroup == nil {
			rel.ReleaseGroup = &musicbrainz.ReleaseGroup{
				ID:               group.ID,
				Title:            group.Title,
				PrimaryType:      group.PrimaryType,
				SecondaryTypes:   group.SecondaryTypes,
				FirstReleaseDate: group.FirstReleaseDate,
			}
		}
		if !strings.EqualFold(rel.Status, "official") {
			reasons.add(ReasonNonOfficial)
			continue
		}
		bucket := release.Classify(release.FromRelease(rel))
		if !bucket.Eligible() {
			reasons.add(ReasonExcludedRelease)
			continue
		}
		pairs := albumPairs(rel, bucket)
		if len(pairs) == 0 {
			reasons.add(ReasonIncompleteMetadata)
			continue
		}
		decision := logging.Decision{Type: "album_release", Result: "selected", Reason: string(bucket)}
		logger.Info("album expanded", logging.Args(decision.Attrs(
			logging.String("release_id", rel.ID),
			logging.Int("tracks", len(pairs)),
			logging.Score("release_score", choice.score),
		)...)...)
		return &AlbumExpansion{
			ReleaseGroupID: group.ID,
			ReleaseID:      rel.ID,
			Album:          strings.TrimSpace(rel.Title),
			Bucket:         bucket,
			Pairs:          pairs,
		}, nil
	}
	if len(reasons) == 0 {
		reasons.add(ReasonNoCandidates)
	}
	reasons.add(ReasonNoOfficialAlbum)
	return nil, reasons.failure("no release of the group can be bound")
}

// rankReleases orders the group's releases: official +40, earliest official
// date up to +25, preferred country +10, any tracks +1, ties by release id.
func (r *Resolver) rankReleases(group *musicbrainz.ReleaseGroup) []releaseChoice {
	dates := make([]string, 0, len(group.Releases))
	for _, rel := range group.Releases {
		if d := strings.TrimSpace(rel.Date); d != "" && strings.EqualFold(rel.Status, "official") {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)

	choices := make([]releaseChoice, 0, len(group.Releases))
	for _, rel := range group.Releases {
		if strings.TrimSpace(rel.ID) == "" {
			continue
		}
		score := 0.0
		if strings.EqualFold(rel.Status, "official") {
			score += 40
			if d := strings.TrimSpace(rel.Date); d != "" {
				idx := sort.SearchStrings(dates, d)
				score += 25 * (1 - float64(idx)/float64(len(dates)))
			}
		}
		if r.policy.PreferredCountry != "" && strings.EqualFold(rel.Country, r.policy.PreferredCountry) {
			score += 10
		}
		if rel.TrackCount() > 0 || trackCountHint(rel) > 0 {
			score += 1
		}
		choices = append(choices, releaseChoice{stub: rel, score: score})
	}
	sort.SliceStable(choices, func(i, j int) bool {
		if choices[i].score != choices[j].score {
			return choices[i].score > choices[j].score
		}
		return choices[i].stub.ID < choices[j].stub.ID
	})
	return choices
}

func trackCountHint(rel musicbrainz.Release) int {
	total := 0
	for _, m := range rel.Media {
		total += m.TrackCount
	}
	return total
}

func albumPairs(rel *musicbrainz.Release, bucket release.Bucket) []BoundPair {
	albumArtist := musicbrainz.CreditString(rel.ArtistCredit)
	date := strings.TrimSpace(rel.Date)
	if date == "" && rel.ReleaseGroup != nil {
		date = strings.TrimSpace(rel.ReleaseGroup.FirstReleaseDate)
	}
	var pairs []BoundPair
	for _, medium := range rel.Media {
		for _, t := range medium.Tracks {
			artist := musicbrainz.CreditString(t.ArtistCredit)
			if artist == "" {
				artist = musicbrainz.CreditString(t.Recording.ArtistCredit)
			}
			if artist == "" {
				artist = albumArtist
			}
			title := strings.TrimSpace(t.Title)
			if title == "" {
				title = strings.TrimSpace(t.Recording.Title)
			}
			length := t.Length
			if length == 0 {
				length = t.Recording.Length
			}
			pair := BoundPair{
				RecordingID:    t.Recording.ID,
				ReleaseID:      rel.ID,
				ReleaseGroupID: rel.ReleaseGroup.ID,
				Album:          strings.TrimSpace(rel.Title),
				ReleaseDate:    date,
				TrackNumber:    t.Position,
				DiscNumber:     medium.Position,
				ArtistCredit:   artist,
				AlbumArtist:    albumArtist,
				Title:          title,
				DurationMS:     length,
				Country:        strings.ToUpper(strings.TrimSpace(rel.Country)),
				Bucket:         bucket,
			}
			if !pair.Complete() {
				return nil
			}
			pairs = append(pairs, pair)
		}
	}
	return pairs
}
