package bench_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"tunebind/internal/bench"
	"tunebind/internal/testsupport"
)

func loadCorpus(t *testing.T) *bench.Corpus {
	t.Helper()
	corpus, err := bench.Load(filepath.Join("testdata", "corpus.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return corpus
}

func TestCorpusIsDeterministic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	corpus := loadCorpus(t)

	report, err := bench.Run(context.Background(), cfg, corpus, bench.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Runs != 6 {
		t.Fatalf("expected corpus run count, got %d", report.Runs)
	}
	for _, c := range report.Cases {
		if !c.Passed {
			t.Errorf("case %q: expected %s, observed %v", c.Name, c.Expected, c.Observed())
		}
	}
	if !report.OK() {
		t.Fatal("expected the corpus to pass")
	}
}

func TestWrongExpectationFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	corpus := loadCorpus(t)
	corpus.Cases[1].Expect.ReleaseID = "rel-hb-b"

	report, err := bench.Run(context.Background(), cfg, corpus, bench.Options{Runs: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Runs != 3 {
		t.Fatalf("expected run override, got %d", report.Runs)
	}
	tie := report.Cases[1]
	if tie.Passed {
		t.Fatal("expected mismatched expectation to fail")
	}
	if !tie.Deterministic() || tie.Outcomes["rec-hb@rel-hb-a"] != 3 {
		t.Fatalf("expected a stable rel-hb-a selection, got %v", tie.Outcomes)
	}
	if report.OK() || report.Passed() != len(report.Cases)-1 {
		t.Fatalf("unexpected pass count %d", report.Passed())
	}
}

func TestParseRejectsBadCorpora(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no cases", "runs: 2\n", "no cases"},
		{"unknown field", "cases:\n  - name: a\n    intnet: {}\n", "intnet"},
		{"missing expectation", "cases:\n  - name: a\n    intent: {title: x}\n", "expect"},
		{"pair and failure", "cases:\n  - name: a\n    expect: {recording_id: r, release_id: l, failure: no_candidates_retrieved}\n", "both"},
		{"duplicate case", "cases:\n  - {name: a, expect: {failure: x}}\n  - {name: a, expect: {failure: x}}\n", "duplicate"},
		{"release without id", "releases:\n  - title: x\ncases:\n  - {name: a, expect: {failure: x}}\n", "id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bench.Parse([]byte(tt.body))
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
