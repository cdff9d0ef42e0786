package scheduler

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
)

// ContentHash fingerprints the set of ids. Order and duplicates do not
// affect the result.
func ContentHash(ids []string) string {
	set := normalizeIDs(ids)
	slices.Sort(set)
	sum := sha256.Sum256([]byte(strings.Join(set, "\n")))
	return hex.EncodeToString(sum[:])
}

// Diff is the set difference between two snapshots.
type Diff struct {
	Added     []string
	Removed   []string
	Unchanged []string
}

// Changed reports whether anything was added or removed.
func (d Diff) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// Compare diffs current against previous. Added and Unchanged keep the
// order of current; Removed keeps the order of previous.
func Compare(previous, current []string) Diff {
	prev := make(map[string]struct{}, len(previous))
	for _, id := range normalizeIDs(previous) {
		prev[id] = struct{}{}
	}
	now := normalizeIDs(current)
	seen := make(map[string]struct{}, len(now))

	var diff Diff
	for _, id := range now {
		seen[id] = struct{}{}
		if _, ok := prev[id]; ok {
			diff.Unchanged = append(diff.Unchanged, id)
		} else {
			diff.Added = append(diff.Added, id)
		}
	}
	for _, id := range normalizeIDs(previous) {
		if _, ok := seen[id]; !ok {
			diff.Removed = append(diff.Removed, id)
		}
	}
	return diff
}

// normalizeIDs trims ids and drops blanks and repeats, keeping first
// occurrence order.
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
