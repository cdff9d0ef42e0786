package scoring

import (
	"strings"

	"tunebind/internal/config"
)

// Weights and limits that are structural rather than tunable.
const (
	CorrectnessWeight  = 0.8
	CompletenessWeight = 0.2
	CountryBonus       = 6.0
	PreviewRejectMS    = 45000
	PreviewHintMS      = 60000
	maxCompleteness    = 100.0
)

// Policy carries the tunable floors and tolerances.
type Policy struct {
	CorrectnessFloor      float64
	TitleFloor            float64
	ArtistFloor           float64
	StrictToleranceMS     int
	AlbumToleranceMS      int
	CompilationAlbumFloor float64
	PreferredCountry      string
	TieEpsilon            float64
}

// DefaultPolicy mirrors the shipped [scoring] defaults.
func DefaultPolicy() Policy {
	return Policy{
		CorrectnessFloor:      62,
		TitleFloor:            0.70,
		ArtistFloor:           0.60,
		StrictToleranceMS:     12000,
		AlbumToleranceMS:      35000,
		CompilationAlbumFloor: 0.40,
		PreferredCountry:      "US",
		TieEpsilon:            1e-6,
	}
}

// PolicyFromConfig builds a Policy from the [scoring] section and the
// authority's preferred country.
func PolicyFromConfig(cfg config.Scoring, preferredCountry string) Policy {
	return Policy{
		CorrectnessFloor:      cfg.CorrectnessFloor,
		TitleFloor:            cfg.TitleFloor,
		ArtistFloor:           cfg.ArtistFloor,
		StrictToleranceMS:     cfg.StrictDurationToleranceMS,
		AlbumToleranceMS:      cfg.AlbumDurationToleranceMS,
		CompilationAlbumFloor: cfg.CompilationAlbumFloor,
		PreferredCountry:      strings.ToUpper(strings.TrimSpace(preferredCountry)),
		TieEpsilon:            cfg.TieEpsilon,
	}
}

func (p Policy) tolerance(albumContext bool) int {
	if albumContext && p.AlbumToleranceMS > p.StrictToleranceMS {
		return p.AlbumToleranceMS
	}
	if p.StrictToleranceMS <= 0 {
		return DefaultPolicy().StrictToleranceMS
	}
	return p.StrictToleranceMS
}
