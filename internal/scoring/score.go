package scoring

import (
	"math"
	"regexp"
	"strings"

	"tunebind/internal/release"
	"tunebind/internal/textutil"
)

// Intent is the expected track a candidate is measured against.
type Intent struct {
	Artist     string
	Title      string
	Album      string
	DurationMS int
	// AlbumContext widens the duration tolerance for album expansion and
	// explicit override flows.
	AlbumContext bool
}

// Candidate is one provider result or one (recording, release) pair from the
// authority.
type Candidate struct {
	ID     string
	Source Source
	URL    string
	Title  string
	Artist string
	// DurationMS is zero when unknown.
	DurationMS int

	RecordingID    string
	ReleaseID      string
	ReleaseGroupID string
	Album          string
	ReleaseDate    string
	Country        string
	TrackNumber    int
	DiscNumber     int
	HasLabel       bool
	HasBarcode     bool
	HasISRC        bool
	Official       bool
}

// Rejection is the hard-gate reason a candidate was not scored.
type Rejection string

const (
	RejectExcludedBucket   Rejection = "excluded_release"
	RejectVariant          Rejection = "disallowed_variant"
	RejectPreview          Rejection = "preview_variant"
	RejectDuration         Rejection = "duration_out_of_tolerance"
	RejectTitle            Rejection = "title_below_floor"
	RejectArtist           Rejection = "artist_below_floor"
	RejectCompilationAlbum Rejection = "compilation_album_mismatch"
	RejectCorrectness      Rejection = "correctness_below_floor"
)

// Result is the full breakdown of one Score call.
type Result struct {
	Candidate  Candidate
	Bucket     release.Bucket
	Multiplier float64

	ArtistSimilarity   float64
	TitleSimilarity    float64
	AlbumSimilarity    float64
	DurationSimilarity float64
	// DurationDeltaMS is -1 when either duration is unknown.
	DurationDeltaMS int

	Correctness  float64
	Completeness float64
	CountryBonus float64
	SourceBonus  float64
	TitleNoise   float64
	Total        float64
	Final        float64

	Rejection Rejection
}

// Passed reports whether the candidate cleared every hard gate.
func (r Result) Passed() bool { return r.Rejection == "" }

var variantTerms = []string{
	"live", "acoustic", "stripped", "cover", "karaoke", "instrumental",
	"radio edit", "remaster", "remastered", "tribute", "nightcore", "sped up", "slowed",
}

var previewTerms = []string{"preview", "snippet", "teaser", "short version"}

var (
	noiseOfficialVideo = regexp.MustCompile(`(?i)\b(official\s+video|official\s+music\s+video|music\s+video|visuali[sz]er|lyric\s+video)\b`)
	noiseRemaster      = regexp.MustCompile(`(?i)\bremaster(ed)?(\s+\d{2,4})?\b`)
	noiseSession       = regexp.MustCompile(`(?i)\b(cmt\s*\d*\s*sessions?|live\s+session|session)\b`)
	featPattern        = regexp.MustCompile(`(?i)\b(feat\.?|ft\.?|featuring)(\s|$)`)
)

// Score measures candidate c against intent within bucket. It is pure: the
// same inputs always give the same Result. Bucket priority is applied only
// after every hard gate passes.
func Score(c Candidate, intent Intent, bucket release.Bucket, p Policy) Result {
	r := Result{Candidate: c, Bucket: bucket, DurationDeltaMS: -1}

	if !bucket.Eligible() {
		r.Rejection = RejectExcludedBucket
		return r
	}

	requested := intent.Title + " " + intent.Album
	for _, term := range variantTerms {
		if textutil.HasToken(c.Title, term) && !textutil.HasToken(requested, term) {
			r.Rejection = RejectVariant
			return r
		}
	}
	for _, term := range previewTerms {
		if textutil.HasToken(c.Title, term) && !textutil.HasToken(requested, term) {
			r.Rejection = RejectPreview
			return r
		}
	}
	if c.DurationMS > 0 && c.DurationMS < PreviewRejectMS && (intent.DurationMS <= 0 || intent.DurationMS >= PreviewHintMS) {
		r.Rejection = RejectPreview
		return r
	}

	tolerance := p.tolerance(intent.AlbumContext)
	if c.DurationMS > 0 && intent.DurationMS > 0 {
		delta := c.DurationMS - intent.DurationMS
		if delta < 0 {
			delta = -delta
		}
		r.DurationDeltaMS = delta
		if delta > tolerance {
			r.Rejection = RejectDuration
			return r
		}
		r.DurationSimilarity = math.Max(0, 1-float64(delta)/float64(tolerance))
	} else {
		r.DurationSimilarity = 0.5
	}

	r.TitleSimilarity = textutil.TokenSimilarity(textutil.StripTransportNoise(intent.Title), textutil.StripTransportNoise(c.Title))
	if r.TitleSimilarity < p.TitleFloor {
		r.Rejection = RejectTitle
		return r
	}

	switch {
	case strings.TrimSpace(intent.Artist) == "":
		r.ArtistSimilarity = 1
	case strings.TrimSpace(c.Artist) == "":
		r.ArtistSimilarity = 0.6
	default:
		r.ArtistSimilarity = textutil.TokenSimilarity(intent.Artist, textutil.StripTransportNoise(c.Artist))
	}
	if r.ArtistSimilarity < p.ArtistFloor {
		r.Rejection = RejectArtist
		return r
	}

	switch {
	case strings.TrimSpace(intent.Album) == "":
		r.AlbumSimilarity = 1
	case strings.TrimSpace(c.Album) == "":
		r.AlbumSimilarity = 0.5
	default:
		r.AlbumSimilarity = textutil.TokenSimilarity(intent.Album, c.Album)
		if bucket == release.BucketCompilation && r.AlbumSimilarity < p.CompilationAlbumFloor {
			r.Rejection = RejectCompilationAlbum
			return r
		}
	}

	r.Correctness = r.ArtistSimilarity*40 + r.TitleSimilarity*30 + r.DurationSimilarity*20 + r.AlbumSimilarity*10
	if r.Correctness < p.CorrectnessFloor {
		r.Rejection = RejectCorrectness
		return r
	}

	r.Completeness = completeness(c)
	if p.PreferredCountry != "" && strings.EqualFold(c.Country, p.PreferredCountry) {
		r.CountryBonus = CountryBonus
	}
	r.SourceBonus = TierOf(c.Source).Bonus
	r.TitleNoise = TitleNoise(c.Title, intent.Title)
	r.Total = r.Correctness*CorrectnessWeight + r.Completeness*CompletenessWeight + r.CountryBonus + r.SourceBonus - r.TitleNoise
	r.Multiplier = bucket.Multiplier()
	r.Final = math.Max(0, r.Total) * r.Multiplier
	return r
}

func completeness(c Candidate) float64 {
	total := 0.0
	if c.ReleaseGroupID != "" {
		total += 18
	}
	if c.ReleaseDate != "" {
		total += 14
	}
	if c.TrackNumber > 0 && c.DiscNumber > 0 {
		total += 20
	}
	if c.Album != "" {
		total += 18
	}
	if c.HasLabel {
		total += 8
	}
	if c.HasBarcode {
		total += 6
	}
	if c.HasISRC {
		total += 8
	}
	if c.Official {
		total += 8
	}
	return math.Min(total, maxCompleteness)
}

// TitleNoise sums the packaging penalties present in a candidate title.
// A featured-artist credit only counts when the expected title has none.
func TitleNoise(candidateTitle, expectedTitle string) float64 {
	noise := 0.0
	if noiseOfficialVideo.MatchString(candidateTitle) {
		noise += 8
	}
	if noiseRemaster.MatchString(candidateTitle) {
		noise += 5
	}
	if noiseSession.MatchString(candidateTitle) {
		noise += 7
	}
	if featPattern.MatchString(candidateTitle) && !featPattern.MatchString(expectedTitle) {
		noise += 4
	}
	return noise
}
