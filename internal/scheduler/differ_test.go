package scheduler_test

import (
	"slices"
	"testing"

	"tunebind/internal/scheduler"
)

func TestContentHashIgnoresOrderAndRepeats(t *testing.T) {
	base := scheduler.ContentHash([]string{"a", "b", "c"})
	cases := map[string][]string{
		"reordered":  {"c", "a", "b"},
		"duplicated": {"a", "b", "b", "c"},
		"padded":     {" a", "b ", "", "c"},
	}
	for name, ids := range cases {
		if got := scheduler.ContentHash(ids); got != base {
			t.Fatalf("%s: expected hash %s, got %s", name, base, got)
		}
	}
	if scheduler.ContentHash([]string{"a", "b"}) == base {
		t.Fatal("expected a removal to change the hash")
	}
	if scheduler.ContentHash([]string{"ab", "c"}) == scheduler.ContentHash([]string{"a", "bc"}) {
		t.Fatal("expected id boundaries to affect the hash")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		previous  []string
		current   []string
		added     []string
		removed   []string
		unchanged []string
	}{
		{
			name:    "first poll",
			current: []string{"a", "b"},
			added:   []string{"a", "b"},
		},
		{
			name:      "reorder",
			previous:  []string{"a", "b", "c"},
			current:   []string{"c", "b", "a"},
			unchanged: []string{"c", "b", "a"},
		},
		{
			name:      "add and remove",
			previous:  []string{"a", "b", "c"},
			current:   []string{"d", "a", "c"},
			added:     []string{"d"},
			removed:   []string{"b"},
			unchanged: []string{"a", "c"},
		},
		{
			name:     "emptied",
			previous: []string{"a"},
			removed:  []string{"a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := scheduler.Compare(tt.previous, tt.current)
			if !slices.Equal(diff.Added, tt.added) {
				t.Fatalf("added: got %v want %v", diff.Added, tt.added)
			}
			if !slices.Equal(diff.Removed, tt.removed) {
				t.Fatalf("removed: got %v want %v", diff.Removed, tt.removed)
			}
			if !slices.Equal(diff.Unchanged, tt.unchanged) {
				t.Fatalf("unchanged: got %v want %v", diff.Unchanged, tt.unchanged)
			}
			if diff.Changed() != (len(tt.added)+len(tt.removed) > 0) {
				t.Fatalf("unexpected Changed() = %v", diff.Changed())
			}
		})
	}
}
