package binding

import (
	"strings"

	"tunebind/internal/release"
	"tunebind/internal/scoring"
)

// State is a resolution phase.
type State string

const (
	StateCollecting  State = "collecting_candidates"
	StateClassifying State = "classifying"
	StateScoring     State = "scoring"
	StateSelected    State = "selected"
	StateFailed      State = "failed"
)

// Intent is an immutable description of the wanted track.
type Intent struct {
	Artist     string `json:"artist" yaml:"artist"`
	Title      string `json:"title" yaml:"title"`
	Album      string `json:"album,omitempty" yaml:"album,omitempty"`
	DurationMS int    `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	// ReleaseID restricts binding to one release when set.
	ReleaseID string `json:"release_id,omitempty" yaml:"release_id,omitempty"`
	// RecordingID skips the recording search when set.
	RecordingID string `json:"recording_id,omitempty" yaml:"recording_id,omitempty"`
	// AlbumContext widens the duration tolerance.
	AlbumContext bool `json:"album_context,omitempty" yaml:"album_context,omitempty"`
}

// Validate reports whether the intent carries enough to search on.
func (i Intent) Validate() error {
	if strings.TrimSpace(i.RecordingID) != "" {
		return nil
	}
	if strings.TrimSpace(i.Title) == "" {
		return &Failure{Reason: ReasonInvalidIntent, Detail: "title is required without a recording id"}
	}
	return nil
}

func (i Intent) scoringIntent() scoring.Intent {
	return scoring.Intent{
		Artist:       i.Artist,
		Title:        i.Title,
		Album:        i.Album,
		DurationMS:   i.DurationMS,
		AlbumContext: i.AlbumContext,
	}
}

// BoundPair is the authoritative output of a resolution. Every downstream
// artifact (job payload, path, tags) is built from these fields only.
type BoundPair struct {
	RecordingID    string         `json:"recording_id"`
	ReleaseID      string         `json:"release_id"`
	ReleaseGroupID string         `json:"release_group_id"`
	Album          string         `json:"album"`
	ReleaseDate    string         `json:"release_date"`
	TrackNumber    int            `json:"track_number"`
	DiscNumber     int            `json:"disc_number"`
	ArtistCredit   string         `json:"artist_credit"`
	AlbumArtist    string         `json:"album_artist,omitempty"`
	Title          string         `json:"title"`
	DurationMS     int            `json:"duration_ms,omitempty"`
	Country        string         `json:"country,omitempty"`
	Bucket         release.Bucket `json:"bucket,omitempty"`
}

// Complete reports whether every identity field is populated.
func (p BoundPair) Complete() bool {
	return p.RecordingID != "" &&
		p.ReleaseID != "" &&
		p.ReleaseGroupID != "" &&
		strings.TrimSpace(p.Album) != "" &&
		strings.TrimSpace(p.ReleaseDate) != "" &&
		p.TrackNumber > 0 &&
		p.DiscNumber > 0 &&
		strings.TrimSpace(p.ArtistCredit) != "" &&
		strings.TrimSpace(p.Title) != ""
}

// RunnerUpReason explains why the second-best candidate lost.
type RunnerUpReason string

const (
	RunnerUpLowerScore     RunnerUpReason = "lower_score"
	RunnerUpBucketPriority RunnerUpReason = "outranked_by_bucket"
	RunnerUpTieBreak       RunnerUpReason = "tie_break"
)

// RunnerUp describes the best losing candidate.
type RunnerUp struct {
	RecordingID string         `json:"recording_id"`
	ReleaseID   string         `json:"release_id"`
	Bucket      release.Bucket `json:"bucket"`
	Score       float64        `json:"score"`
	Margin      float64        `json:"margin"`
	Reason      RunnerUpReason `json:"reason"`
}

// Selection is the observability record of a successful resolution.
type Selection struct {
	Pair       BoundPair      `json:"pair"`
	Bucket     release.Bucket `json:"bucket"`
	Multiplier float64        `json:"multiplier"`
	Score      float64        `json:"score"`
	RunnerUp   *RunnerUp      `json:"runner_up,omitempty"`
	Considered int            `json:"considered"`
	Rejected   map[string]int `json:"rejected,omitempty"`
	States     []State        `json:"states"`
}
