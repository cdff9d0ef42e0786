package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"tunebind/internal/config"
	"tunebind/internal/logging"
	"tunebind/internal/musicbrainz"
	"tunebind/internal/release"
	"tunebind/internal/scoring"
	"tunebind/internal/services"
)

const defaultSearchLimit = 5

// Resolver binds intents against the metadata authority.
type Resolver struct {
	authority      musicbrainz.Authority
	policy         scoring.Policy
	singleFallback bool
	searchLimit    int
	logger         *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPolicy overrides the scoring policy.
func WithPolicy(p scoring.Policy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithSingleFallback lets single-bucket releases compete when no album or
// compilation candidate survives.
func WithSingleFallback(enabled bool) Option {
	return func(r *Resolver) { r.singleFallback = enabled }
}

// WithSearchLimit caps the number of recordings considered per search.
func WithSearchLimit(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.searchLimit = n
		}
	}
}

// WithLogger sets the decision logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Resolver.
func New(authority musicbrainz.Authority, opts ...Option) *Resolver {
	r := &Resolver{
		authority:   authority,
		policy:      scoring.DefaultPolicy(),
		searchLimit: defaultSearchLimit,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromConfig builds a Resolver from the [musicbrainz] and [scoring]
// sections.
func NewFromConfig(cfg *config.Config, authority musicbrainz.Authority, logger *slog.Logger) *Resolver {
	return New(authority,
		WithPolicy(scoring.PolicyFromConfig(cfg.Scoring, cfg.MusicBrainz.PreferredCountry)),
		WithSingleFallback(cfg.MusicBrainz.AllowNonAlbumFallback),
		WithSearchLimit(cfg.MusicBrainz.SearchLimit),
		WithLogger(logging.NewComponentLogger(logger, "binding")),
	)
}

// Policy returns the scoring policy in effect.
func (r *Resolver) Policy() scoring.Policy { return r.policy }

type pairCandidate struct {
	pair      BoundPair
	candidate scoring.Candidate
	result    scoring.Result
}

// resolution is the mutable state of one Resolve call.
type resolution struct {
	intent          Intent
	states          []State
	reasons         reasonSet
	seenAlbumBucket bool
	seenCountry     bool
}

func (s *resolution) enter(state State) { s.states = append(s.states, state) }

// Resolve runs one resolution. A *Failure is returned when no complete pair
// clears the gates; other errors come from the authority and are not
// binding decisions.
func (r *Resolver) Resolve(ctx context.Context, intent Intent) (*Selection, error) {
	if r.authority == nil {
		return nil, services.Wrap(services.ErrConfiguration, "binding", "resolve", "metadata authority unavailable", nil)
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String("artist", intent.Artist),
		logging.String("title", intent.Title),
	)
	state := &resolution{intent: intent, reasons: reasonSet{}}

	state.enter(StateCollecting)
	recordings, err := r.collectRecordings(ctx, intent)
	if err != nil {
		return nil, err
	}
	if len(recordings) == 0 {
		state.reasons.add(ReasonNoCandidates)
		return nil, r.fail(logger, state, "authority returned no recordings")
	}
	releases, err := r.collectReleases(ctx, intent, recordings)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		state.reasons.add(ReasonNoCandidates)
		return nil, r.fail(logger, state, "recordings carry no releases")
	}

	state.enter(StateClassifying)
	candidates := r.classify(state, recordings, releases)

	state.enter(StateScoring)
	results := r.score(logger, state, candidates)
	ranked := r.rank(results)
	if len(ranked) == 0 {
		if !state.seenAlbumBucket {
			state.reasons.add(ReasonNoOfficialAlbum)
		}
		if r.policy.PreferredCountry != "" && !state.seenCountry {
			state.reasons.add(ReasonNoPreferredCountry)
		}
		return nil, r.fail(logger, state, "no candidate cleared the gates")
	}

	winner := ranked[0]
	if !winner.pair.Complete() {
		state.reasons.add(ReasonIncompleteMetadata)
		return nil, r.fail(logger, state, "selected pair is incomplete")
	}
	state.enter(StateSelected)
	sel := &Selection{
		Pair:       winner.pair,
		Bucket:     winner.result.Bucket,
		Multiplier: winner.result.Multiplier,
		Score:      winner.result.Final,
		Considered: len(results),
		Rejected:   state.reasons.counts(),
		States:     state.states,
	}
	if len(ranked) > 1 {
		sel.RunnerUp = runnerUp(winner, ranked[1], r.policy.TieEpsilon)
	}
	decision := logging.Decision{Type: "binding_selection", Result: "selected", Reason: string(sel.Bucket)}
	attrs := decision.Attrs(
		logging.String("recording_id", sel.Pair.RecordingID),
		logging.String("release_id", sel.Pair.ReleaseID),
		logging.String("release_group_id", sel.Pair.ReleaseGroupID),
		logging.String("bucket", string(sel.Bucket)),
		logging.Float64("bucket_multiplier", sel.Multiplier),
		logging.Score("score", sel.Score),
		logging.Int("considered", sel.Considered),
	)
	if sel.RunnerUp != nil {
		attrs = append(attrs,
			logging.Score("runner_up_margin", sel.RunnerUp.Margin),
			logging.String("runner_up_reason", string(sel.RunnerUp.Reason)),
		)
	}
	logger.Info("binding selected", logging.Args(attrs...)...)
	return sel, nil
}

func (r *Resolver) fail(logger *slog.Logger, state *resolution, detail string) error {
	state.enter(StateFailed)
	f := state.reasons.failure(detail)
	decision := logging.Decision{Type: "binding_selection", Result: "failed", Reason: string(f.Reason)}
	logger.Info("binding failed", logging.Args(decision.Attrs(logging.Any("reasons", f.Reasons))...)...)
	return f
}

func (r *Resolver) collectRecordings(ctx context.Context, intent Intent) ([]*musicbrainz.Recording, error) {
	if id := strings.TrimSpace(intent.RecordingID); id != "" {
		rec, err := r.authority.GetRecording(ctx, id, musicbrainz.RecordingIncludes)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []*musicbrainz.Recording{rec}, nil
	}

	hits, err := r.authority.SearchRecordings(ctx, musicbrainz.RecordingQuery{
		Artist: intent.Artist,
		Title:  intent.Title,
		Album:  intent.Album,
		Limit:  r.searchLimit,
	})
	if err != nil {
		return nil, err
	}
	if len(hits) > r.searchLimit {
		hits = hits[:r.searchLimit]
	}
	out := make([]*musicbrainz.Recording, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		if hit.ID == "" {
			continue
		}
		if _, dup := seen[hit.ID]; dup {
			continue
		}
		seen[hit.ID] = struct{}{}
		rec, err := r.authority.GetRecording(ctx, hit.ID, musicbrainz.RecordingIncludes)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Resolver) collectReleases(ctx context.Context, intent Intent, recordings []*musicbrainz.Recording) (map[string]*musicbrainz.Release, error) {
	releases := make(map[string]*musicbrainz.Release)
	for _, rec := range recordings {
		for _, stub := range rec.Releases {
			id := strings.TrimSpace(stub.ID)
			if id == "" {
				continue
			}
			if intent.ReleaseID != "" && id != intent.ReleaseID {
				continue
			}
			if _, ok := releases[id]; ok {
				continue
			}
			rel, err := r.authority.GetRelease(ctx, id, musicbrainz.ReleaseIncludes)
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					continue
				}
				return nil, err
			}
			releases[id] = rel
		}
	}
	return releases, nil
}

// classify filters (recording, release) pairs down to scoreable candidates.
func (r *Resolver) classify(state *resolution, recordings []*musicbrainz.Recording, releases map[string]*musicbrainz.Release) []pairCandidate {
	var out []pairCandidate
	seen := make(map[string]struct{})
	for _, rec := range recordings {
		for _, stub := range rec.Releases {
			rel, ok := releases[stub.ID]
			if !ok {
				continue
			}
			key := rec.ID + ":" + rel.ID
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if !strings.EqualFold(strings.TrimSpace(rel.Status), "official") {
				state.reasons.add(ReasonNonOfficial)
				continue
			}
			bucket := release.Classify(release.FromRelease(rel))
			switch bucket {
			case release.BucketExcluded:
				state.reasons.add(ReasonExcludedRelease)
				continue
			case release.BucketAlbum, release.BucketCompilation:
				state.seenAlbumBucket = true
			}
			if r.policy.PreferredCountry != "" && strings.EqualFold(rel.Country, r.policy.PreferredCountry) {
				state.seenCountry = true
			}
			track, disc, found := rel.TrackPosition(rec.ID)
			if !found {
				state.reasons.add(ReasonTrackNotFound)
				continue
			}
			pair := buildPair(rec, rel, track, disc, bucket)
			if !pair.Complete() {
				state.reasons.add(ReasonIncompleteMetadata)
				continue
			}
			out = append(out, pairCandidate{
				pair:      pair,
				candidate: authorityCandidate(pair, rec, rel),
				result:    scoring.Result{Bucket: bucket},
			})
		}
	}
	return out
}

func (r *Resolver) score(logger *slog.Logger, state *resolution, candidates []pairCandidate) []pairCandidate {
	intent := state.intent.scoringIntent()
	hasAlbumPool := false
	scored := make([]pairCandidate, 0, len(candidates))
	for _, cand := range candidates {
		c := cand
		c.result = scoring.Score(c.candidate, intent, c.result.Bucket, r.policy)
		logger.Debug("binding candidate scored", logging.Args(
			logging.String("recording_id", c.pair.RecordingID),
			logging.String("release_id", c.pair.ReleaseID),
			logging.String("bucket", string(c.result.Bucket)),
			logging.Score("correctness", c.result.Correctness),
			logging.Score("final", c.result.Final),
			logging.String(logging.FieldReason, string(c.result.Rejection)),
		)...)
		if !c.result.Passed() {
			state.reasons.add(reasonFromRejection(c.result.Rejection))
			continue
		}
		if c.result.Bucket != release.BucketSingle {
			hasAlbumPool = true
		}
		scored = append(scored, c)
	}
	if hasAlbumPool && !r.singleFallback {
		kept := scored[:0]
		for _, c := range scored {
			if c.result.Bucket == release.BucketSingle {
				state.reasons.add(ReasonSingleNotAllowed)
				continue
			}
			kept = append(kept, c)
		}
		scored = kept
	}
	return scored
}

// rank orders passing candidates with the shared tie-break, then moves the
// album and compilation pool ahead of singles.
func (r *Resolver) rank(candidates []pairCandidate) []pairCandidate {
	results := make([]scoring.Result, 0, len(candidates))
	byID := make(map[string]pairCandidate, len(candidates))
	for _, c := range candidates {
		results = append(results, c.result)
		byID[c.result.Candidate.ID] = c
	}
	ranked := scoring.Rank(results, r.policy.TieEpsilon)
	var albums, singles []pairCandidate
	for _, res := range ranked {
		c := byID[res.Candidate.ID]
		if res.Bucket == release.BucketSingle {
			singles = append(singles, c)
		} else {
			albums = append(albums, c)
		}
	}
	return append(albums, singles...)
}

func runnerUp(winner, second pairCandidate, epsilon float64) *RunnerUp {
	margin := winner.result.Final - second.result.Final
	ru := &RunnerUp{
		RecordingID: second.pair.RecordingID,
		ReleaseID:   second.pair.ReleaseID,
		Bucket:      second.result.Bucket,
		Score:       second.result.Final,
		Margin:      margin,
	}
	switch {
	case winner.result.Bucket.Multiplier() > second.result.Bucket.Multiplier():
		ru.Reason = RunnerUpBucketPriority
	case math.Abs(margin) <= epsilon:
		ru.Reason = RunnerUpTieBreak
	default:
		ru.Reason = RunnerUpLowerScore
	}
	return ru
}

func buildPair(rec *musicbrainz.Recording, rel *musicbrainz.Release, track, disc int, bucket release.Bucket) BoundPair {
	pair := BoundPair{
		RecordingID:  rec.ID,
		ReleaseID:    rel.ID,
		Album:        strings.TrimSpace(rel.Title),
		ReleaseDate:  strings.TrimSpace(rel.Date),
		TrackNumber:  track,
		DiscNumber:   disc,
		ArtistCredit: musicbrainz.CreditString(rec.ArtistCredit),
		AlbumArtist:  musicbrainz.CreditString(rel.ArtistCredit),
		Title:        strings.TrimSpace(rec.Title),
		DurationMS:   rec.Length,
		Country:      strings.ToUpper(strings.TrimSpace(rel.Country)),
		Bucket:       bucket,
	}
	if rel.ReleaseGroup != nil {
		pair.ReleaseGroupID = rel.ReleaseGroup.ID
	}
	if pair.ArtistCredit == "" {
		pair.ArtistCredit = pair.AlbumArtist
	}
	if pair.ReleaseDate == "" && rel.ReleaseGroup != nil {
		pair.ReleaseDate = strings.TrimSpace(rel.ReleaseGroup.FirstReleaseDate)
	}
	if pair.DurationMS == 0 {
		pair.DurationMS = trackLength(rel, rec.ID)
	}
	return pair
}

func trackLength(rel *musicbrainz.Release, recordingID string) int {
	for _, medium := range rel.Media {
		for _, t := range medium.Tracks {
			if t.Recording.ID == recordingID {
				return t.Length
			}
		}
	}
	return 0
}

func authorityCandidate(p BoundPair, rec *musicbrainz.Recording, rel *musicbrainz.Release) scoring.Candidate {
	return scoring.Candidate{
		ID:             fmt.Sprintf("%s:%s", p.RecordingID, p.ReleaseID),
		Source:         scoring.SourceAuthority,
		Title:          p.Title,
		Artist:         p.ArtistCredit,
		DurationMS:     p.DurationMS,
		RecordingID:    p.RecordingID,
		ReleaseID:      p.ReleaseID,
		ReleaseGroupID: p.ReleaseGroupID,
		Album:          p.Album,
		ReleaseDate:    p.ReleaseDate,
		Country:        p.Country,
		TrackNumber:    p.TrackNumber,
		DiscNumber:     p.DiscNumber,
		HasLabel:       len(rel.LabelInfo) > 0,
		HasBarcode:     strings.TrimSpace(rel.Barcode) != "",
		HasISRC:        len(rec.ISRCs) > 0,
		Official:       true,
	}
}
