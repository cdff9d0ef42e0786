package binding

import (
	"errors"
	"sort"
	"strings"

	"tunebind/internal/scoring"
	"tunebind/internal/services"
)

// Reason is a closed-set binding failure code.
type Reason string

const (
	ReasonNoCandidates         Reason = "no_candidates_retrieved"
	ReasonNoOfficialAlbum      Reason = "no_official_album"
	ReasonNoPreferredCountry   Reason = "no_us_release"
	ReasonTrackNotFound        Reason = "track_not_found_in_release"
	ReasonCompilationMismatch  Reason = "compilation_album_mismatch"
	ReasonCorrectnessBelow     Reason = "correctness_below_floor"
	ReasonNonOfficial          Reason = "non_official_release"
	ReasonExcludedRelease      Reason = "excluded_release"
	ReasonSingleNotAllowed     Reason = "non_album_release_type"
	ReasonIncompleteMetadata   Reason = "incomplete_release_metadata"
	ReasonDisallowedVariant    Reason = "disallowed_variant"
	ReasonPreviewVariant       Reason = "preview_variant"
	ReasonDurationOutOfRange   Reason = "duration_out_of_tolerance"
	ReasonTitleBelowFloor      Reason = "title_below_floor"
	ReasonArtistBelowFloor     Reason = "artist_below_floor"
	ReasonReleaseGroupNotFound Reason = "release_group_not_found"
	ReasonInvalidIntent        Reason = "invalid_intent"
)

// Failure is a resolution that could not produce a complete BoundPair.
// Reason is the primary code; Reasons holds every code observed, sorted.
type Failure struct {
	Reason  Reason
	Reasons []Reason
	Detail  string
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString("binding failed: ")
	b.WriteString(string(f.Reason))
	if len(f.Reasons) > 1 {
		names := make([]string, 0, len(f.Reasons))
		for _, r := range f.Reasons {
			names = append(names, string(r))
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(names, ","))
		b.WriteString("]")
	}
	if f.Detail != "" {
		b.WriteString(": ")
		b.WriteString(f.Detail)
	}
	return b.String()
}

// Unwrap lets services.KindOf classify binding failures.
func (f *Failure) Unwrap() error { return services.ErrBinding }

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// reasonPriority orders primary reasons from most to least specific.
var reasonPriority = []Reason{
	ReasonInvalidIntent,
	ReasonReleaseGroupNotFound,
	ReasonNoCandidates,
	ReasonCompilationMismatch,
	ReasonTrackNotFound,
	ReasonCorrectnessBelow,
	ReasonNoOfficialAlbum,
	ReasonNoPreferredCountry,
	ReasonIncompleteMetadata,
	ReasonDisallowedVariant,
	ReasonPreviewVariant,
	ReasonDurationOutOfRange,
	ReasonTitleBelowFloor,
	ReasonArtistBelowFloor,
	ReasonSingleNotAllowed,
	ReasonExcludedRelease,
	ReasonNonOfficial,
}

type reasonSet map[Reason]int

func (s reasonSet) add(r Reason) { s[r]++ }

func (s reasonSet) sorted() []Reason {
	out := make([]Reason, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s reasonSet) counts() map[string]int {
	if len(s) == 0 {
		return nil
	}
	out := make(map[string]int, len(s))
	for r, n := range s {
		out[string(r)] = n
	}
	return out
}

func (s reasonSet) failure(detail string) *Failure {
	f := &Failure{Reasons: s.sorted(), Detail: detail}
	for _, r := range reasonPriority {
		if _, ok := s[r]; ok {
			f.Reason = r
			break
		}
	}
	if f.Reason == "" {
		f.Reason = ReasonNoCandidates
	}
	return f
}

func reasonFromRejection(r scoring.Rejection) Reason {
	switch r {
	case scoring.RejectExcludedBucket:
		return ReasonExcludedRelease
	case scoring.RejectVariant:
		return ReasonDisallowedVariant
	case scoring.RejectPreview:
		return ReasonPreviewVariant
	case scoring.RejectDuration:
		return ReasonDurationOutOfRange
	case scoring.RejectTitle:
		return ReasonTitleBelowFloor
	case scoring.RejectArtist:
		return ReasonArtistBelowFloor
	case scoring.RejectCompilationAlbum:
		return ReasonCompilationMismatch
	default:
		return ReasonCorrectnessBelow
	}
}
