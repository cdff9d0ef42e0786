package scoring

// Source names the provider a candidate came from.
type Source string

const (
	SourceAuthority    Source = "musicbrainz"
	SourceYouTubeMusic Source = "youtube_music"
	SourceYouTube      Source = "youtube"
	SourceSoundCloud   Source = "soundcloud"
	SourceBandcamp     Source = "bandcamp"
)

// Tier is a source's tie-break priority and its additive score bonus.
type Tier struct {
	Priority int
	Bonus    float64
}

var tiers = map[Source]Tier{
	SourceAuthority:    {Priority: 10, Bonus: 0},
	SourceYouTubeMusic: {Priority: 10, Bonus: 6},
	SourceYouTube:      {Priority: 7, Bonus: 0},
	SourceSoundCloud:   {Priority: 4, Bonus: -6},
	SourceBandcamp:     {Priority: 2, Bonus: -10},
}

// TierOf returns the tier for s; unknown sources rank last with no bonus.
func TierOf(s Source) Tier {
	return tiers[s]
}
