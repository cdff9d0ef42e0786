// Package release classifies authority releases into the buckets the scoring
// engine weighs.
package release

import (
	"strings"

	"tunebind/internal/musicbrainz"
	"tunebind/internal/textutil"
)

// Bucket is the retrieval class of a release.
type Bucket string

const (
	BucketAlbum       Bucket = "album"
	BucketCompilation Bucket = "compilation"
	BucketSingle      Bucket = "single"
	BucketExcluded    Bucket = "excluded"
)

// Multiplier is the bucket-priority weight applied after hard gates pass.
func (b Bucket) Multiplier() float64 {
	switch b {
	case BucketAlbum:
		return 1.00
	case BucketCompilation:
		return 0.96
	case BucketSingle:
		return 0.92
	default:
		return 0
	}
}

// Eligible reports whether the bucket may reach scoring at all.
func (b Bucket) Eligible() bool {
	return b == BucketAlbum || b == BucketCompilation || b == BucketSingle
}

// Record is the part of a release that classification looks at.
type Record struct {
	PrimaryType    string
	SecondaryTypes []string
	Status         string
	Title          string
	Disambiguation string
}

// FromRelease extracts a Record from an authority release. The release-group
// carries the type tags; status and disambiguation live on the release.
func FromRelease(r *musicbrainz.Release) Record {
	if r == nil {
		return Record{}
	}
	rec := Record{Status: r.Status, Title: r.Title, Disambiguation: r.Disambiguation}
	if r.ReleaseGroup != nil {
		rec.PrimaryType = r.ReleaseGroup.PrimaryType
		rec.SecondaryTypes = r.ReleaseGroup.SecondaryTypes
	}
	return rec
}

var excludingSecondary = map[string]struct{}{
	"live":            {},
	"soundtrack":      {},
	"remix":           {},
	"interview":       {},
	"mixtape/street":  {},
	"dj-mix":          {},
	"demo":            {},
	"audiobook":       {},
	"spokenword":      {},
	"audio drama":     {},
	"field recording": {},
}

var compilationSecondary = map[string]struct{}{
	"compilation":   {},
	"retrospective": {},
}

// disambiguation phrases that mark a non-canonical pressing.
var excludingDisambiguation = []string{"live", "bootleg", "karaoke", "unofficial"}

var excludingStatus = map[string]struct{}{
	"bootleg":        {},
	"promotion":      {},
	"pseudo-release": {},
	"withdrawn":      {},
	"cancelled":      {},
}

// Classify assigns a bucket. EPs count as albums; a compilation secondary
// type moves an album (or untyped) release to the compilation bucket; any
// disqualifying secondary type, bootleg/promo status, or live/bootleg
// disambiguation excludes it.
func Classify(rec Record) Bucket {
	if _, bad := excludingStatus[fold(rec.Status)]; bad {
		return BucketExcluded
	}
	for _, phrase := range excludingDisambiguation {
		if textutil.HasToken(rec.Disambiguation, phrase) {
			return BucketExcluded
		}
	}
	primary := fold(rec.PrimaryType)
	compilation := false
	for _, st := range rec.SecondaryTypes {
		key := fold(st)
		if _, bad := excludingSecondary[key]; bad {
			return BucketExcluded
		}
		if _, ok := compilationSecondary[key]; ok {
			compilation = true
		}
	}
	switch primary {
	case "album", "ep":
		if compilation {
			return BucketCompilation
		}
		return BucketAlbum
	case "":
		if compilation {
			return BucketCompilation
		}
		return BucketExcluded
	case "single":
		if compilation {
			return BucketCompilation
		}
		return BucketSingle
	default:
		return BucketExcluded
	}
}

func fold(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
