package scoring

import "strings"

// Rank orders the passing results best first. Scores within epsilon of the
// current best are treated as equal and settled by a fixed, total tie-break:
// higher source priority, smaller duration delta, lower title noise,
// lexicographically smaller release id. The result does not depend on the
// order of the input.
func Rank(results []Result, epsilon float64) []Result {
	if epsilon < 0 {
		epsilon = 0
	}
	remaining := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Passed() {
			remaining = append(remaining, r)
		}
	}
	ranked := make([]Result, 0, len(remaining))
	for len(remaining) > 0 {
		best := remaining[0].Final
		for _, r := range remaining[1:] {
			if r.Final > best {
				best = r.Final
			}
		}
		pick := -1
		for i, r := range remaining {
			if r.Final < best-epsilon {
				continue
			}
			if pick < 0 || CompareTie(r, remaining[pick]) < 0 {
				pick = i
			}
		}
		ranked = append(ranked, remaining[pick])
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}
	return ranked
}

// CompareTie orders two equally scored results; negative means a wins.
func CompareTie(a, b Result) int {
	if pa, pb := TierOf(a.Candidate.Source).Priority, TierOf(b.Candidate.Source).Priority; pa != pb {
		if pa > pb {
			return -1
		}
		return 1
	}
	if da, db := deltaKey(a), deltaKey(b); da != db {
		if da < db {
			return -1
		}
		return 1
	}
	if a.TitleNoise != b.TitleNoise {
		if a.TitleNoise < b.TitleNoise {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Candidate.ReleaseID, b.Candidate.ReleaseID); c != 0 {
		return c
	}
	if c := strings.Compare(a.Candidate.RecordingID, b.Candidate.RecordingID); c != 0 {
		return c
	}
	if c := strings.Compare(a.Candidate.ID, b.Candidate.ID); c != 0 {
		return c
	}
	return strings.Compare(a.Candidate.URL, b.Candidate.URL)
}

func deltaKey(r Result) int {
	if r.DurationDeltaMS < 0 {
		return int(^uint(0) >> 1)
	}
	return r.DurationDeltaMS
}
