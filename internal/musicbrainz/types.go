package musicbrainz

import "strings"

// ArtistCredit is one entry of an artist-credit list.
type ArtistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
	Artist     struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
}

// CreditString joins an artist-credit list the way it is printed on a sleeve.
func CreditString(credits []ArtistCredit) string {
	var b strings.Builder
	for _, c := range credits {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = strings.TrimSpace(c.Artist.Name)
		}
		b.WriteString(name)
		b.WriteString(c.JoinPhrase)
	}
	return strings.TrimSpace(b.String())
}

// ReleaseGroup models /release-group lookups and the embedded release-group
// object of a release.
type ReleaseGroup struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	PrimaryType      string         `json:"primary-type"`
	SecondaryTypes   []string       `json:"secondary-types"`
	FirstReleaseDate string         `json:"first-release-date"`
	Disambiguation   string         `json:"disambiguation"`
	ArtistCredit     []ArtistCredit `json:"artist-credit"`
	Releases         []Release      `json:"releases"`
}

// Track is one position on a medium.
type Track struct {
	ID           string         `json:"id"`
	Position     int            `json:"position"`
	Number       string         `json:"number"`
	Title        string         `json:"title"`
	Length       int            `json:"length"`
	ArtistCredit []ArtistCredit `json:"artist-credit"`
	Recording    Recording      `json:"recording"`
}

// Medium is a disc (or side) of a release.
type Medium struct {
	Position   int     `json:"position"`
	Format     string  `json:"format"`
	TrackCount int     `json:"track-count"`
	Tracks     []Track `json:"tracks"`
}

// LabelInfo is an entry of a release's label-info list.
type LabelInfo struct {
	CatalogNumber string `json:"catalog-number"`
	Label         *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"label"`
}

// Release models /release lookups and the release stubs embedded in
// recordings and release groups.
type Release struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Status         string         `json:"status"`
	Date           string         `json:"date"`
	Country        string         `json:"country"`
	Barcode        string         `json:"barcode"`
	Disambiguation string         `json:"disambiguation"`
	ArtistCredit   []ArtistCredit `json:"artist-credit"`
	ReleaseGroup   *ReleaseGroup  `json:"release-group"`
	Media          []Medium       `json:"media"`
	LabelInfo      []LabelInfo    `json:"label-info"`
}

// TrackPosition locates recordingID in the release's media. Both numbers are
// 1-based; ok is false when the recording is not on this release.
func (r *Release) TrackPosition(recordingID string) (track, disc int, ok bool) {
	if r == nil || recordingID == "" {
		return 0, 0, false
	}
	for _, medium := range r.Media {
		for _, t := range medium.Tracks {
			if t.Recording.ID != recordingID {
				continue
			}
			if t.Position <= 0 || medium.Position <= 0 {
				return 0, 0, false
			}
			return t.Position, medium.Position, true
		}
	}
	return 0, 0, false
}

// TrackCount is the number of tracks across all media.
func (r *Release) TrackCount() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, m := range r.Media {
		total += len(m.Tracks)
	}
	return total
}

// Recording models /recording lookups and search hits.
type Recording struct {
	ID             string         `json:"id"`
	Score          int            `json:"score"`
	Title          string         `json:"title"`
	Length         int            `json:"length"`
	Disambiguation string         `json:"disambiguation"`
	ArtistCredit   []ArtistCredit `json:"artist-credit"`
	Releases       []Release      `json:"releases"`
	ISRCs          []string       `json:"isrcs"`
}

// RecordingQuery is the input of a recording search.
type RecordingQuery struct {
	Artist string
	Title  string
	Album  string
	Limit  int
}

// Lucene renders the query in the authority's search syntax.
func (q RecordingQuery) Lucene() string {
	parts := make([]string, 0, 3)
	if v := strings.TrimSpace(q.Artist); v != "" {
		parts = append(parts, `artist:"`+escapeLucene(v)+`"`)
	}
	if v := strings.TrimSpace(q.Title); v != "" {
		parts = append(parts, `recording:"`+escapeLucene(v)+`"`)
	}
	if v := strings.TrimSpace(q.Album); v != "" {
		parts = append(parts, `release:"`+escapeLucene(v)+`"`)
	}
	return strings.Join(parts, " AND ")
}

func escapeLucene(value string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
}

type recordingSearchResponse struct {
	Count      int         `json:"count"`
	Recordings []Recording `json:"recordings"`
}
