package acquire

import (
	"fmt"
	"sort"
	"strings"

	"tunebind/internal/binding"
	"tunebind/internal/release"
	"tunebind/internal/scoring"
	"tunebind/internal/services"
)

// Provider selection failure reasons.
const (
	ReasonNoSearchResults    = "no_search_results"
	ReasonNoAcceptableSource = "no_acceptable_source"
)

// ProviderIntent is what a provider candidate is measured against for pair.
func ProviderIntent(pair binding.BoundPair, albumContext bool) scoring.Intent {
	return scoring.Intent{
		Artist:       pair.ArtistCredit,
		Title:        pair.Title,
		Album:        pair.Album,
		DurationMS:   pair.DurationMS,
		AlbumContext: albumContext,
	}
}

// SelectSource scores every provider candidate within the pair's bucket and
// returns the winner plus all scored results in input order. No candidates
// is a retryable failure; candidates that all fail a gate are terminal.
func SelectSource(candidates []scoring.Candidate, pair binding.BoundPair, albumContext bool, policy scoring.Policy) (scoring.Result, []scoring.Result, error) {
	if len(candidates) == 0 {
		return scoring.Result{}, nil, services.WrapReason(services.ErrTransient, "acquire", "select source",
			ReasonNoSearchResults, "provider search returned no candidates", nil)
	}
	intent := ProviderIntent(pair, albumContext)
	bucket := pair.Bucket
	if bucket == "" {
		bucket = release.BucketSingle
	}
	results := make([]scoring.Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, scoring.Score(c, intent, bucket, policy))
	}
	ranked := scoring.Rank(results, policy.TieEpsilon)
	if len(ranked) == 0 {
		return scoring.Result{}, results, services.WrapReason(services.ErrPermanent, "acquire", "select source",
			ReasonNoAcceptableSource, "every candidate rejected: "+rejectionSummary(results), nil)
	}
	return ranked[0], results, nil
}

func rejectionSummary(results []scoring.Result) string {
	counts := map[string]int{}
	for _, r := range results {
		if !r.Passed() {
			counts[string(r.Rejection)]++
		}
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, ",")
}
