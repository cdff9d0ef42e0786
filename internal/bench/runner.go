package bench

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"tunebind/internal/binding"
	"tunebind/internal/config"
	"tunebind/internal/logging"
)

const defaultRuns = 5

// Options tunes a bench run.
type Options struct {
	// Runs overrides the corpus run count when positive.
	Runs   int
	Logger *slog.Logger
}

// CaseResult is the outcome of one case across every run.
type CaseResult struct {
	Name     string
	Expected string
	// Outcomes counts each distinct outcome label.
	Outcomes map[string]int
	Passed   bool
}

// Deterministic reports whether every run produced the same outcome.
func (c CaseResult) Deterministic() bool { return len(c.Outcomes) == 1 }

// Observed lists distinct outcome labels in sorted order.
func (c CaseResult) Observed() []string {
	out := make([]string, 0, len(c.Outcomes))
	for label := range c.Outcomes {
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}

// Report summarizes a bench run.
type Report struct {
	Runs  int
	Cases []CaseResult
}

// Passed counts passing cases.
func (r *Report) Passed() int {
	n := 0
	for _, c := range r.Cases {
		if c.Passed {
			n++
		}
	}
	return n
}

// OK reports whether every case passed deterministically.
func (r *Report) OK() bool {
	for _, c := range r.Cases {
		if !c.Passed || !c.Deterministic() {
			return false
		}
	}
	return true
}

// Run resolves every case of corpus the configured number of times.
// Authority errors other than binding failures abort the run.
func Run(ctx context.Context, cfg *config.Config, corpus *Corpus, opts Options) (*Report, error) {
	runs := defaultRuns
	if corpus.Runs > 0 {
		runs = corpus.Runs
	}
	if opts.Runs > 0 {
		runs = opts.Runs
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	benchCfg := *cfg
	if corpus.PreferredCountry != "" {
		benchCfg.MusicBrainz.PreferredCountry = strings.ToUpper(corpus.PreferredCountry)
	}
	if corpus.SingleFallback != nil {
		benchCfg.MusicBrainz.AllowNonAlbumFallback = *corpus.SingleFallback
	}

	authority := newFixtureAuthority(corpus)
	resolver := binding.NewFromConfig(&benchCfg, authority, logger)

	report := &Report{Runs: runs, Cases: make([]CaseResult, len(corpus.Cases))}
	for i, tc := range corpus.Cases {
		report.Cases[i] = CaseResult{
			Name:     tc.Name,
			Expected: expectedLabel(tc.Expect),
			Outcomes: make(map[string]int),
		}
	}
	for run := range runs {
		authority.reseed(run)
		for i, tc := range corpus.Cases {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			label, err := resolveLabel(ctx, resolver, tc.Intent)
			if err != nil {
				return nil, fmt.Errorf("case %q run %d: %w", tc.Name, run+1, err)
			}
			report.Cases[i].Outcomes[label]++
		}
	}
	for i := range report.Cases {
		c := &report.Cases[i]
		c.Passed = c.Deterministic() && c.Outcomes[c.Expected] == runs
	}

	logger.Info("bench complete",
		logging.Int("cases", len(report.Cases)),
		logging.Int("runs", runs),
		logging.Int("passed", report.Passed()),
		logging.Bool("ok", report.OK()),
		logging.String(logging.FieldEventType, "bench_complete"),
	)
	return report, nil
}

func resolveLabel(ctx context.Context, resolver *binding.Resolver, in Intent) (string, error) {
	sel, err := resolver.Resolve(ctx, binding.Intent{
		Artist:       in.Artist,
		Title:        in.Title,
		Album:        in.Album,
		DurationMS:   in.DurationMS,
		AlbumContext: in.AlbumContext,
	})
	if err != nil {
		if failure, ok := binding.AsFailure(err); ok {
			return "failure:" + string(failure.Reason), nil
		}
		return "", err
	}
	return pairLabel(sel.Pair.RecordingID, sel.Pair.ReleaseID), nil
}

func expectedLabel(exp Expectation) string {
	if exp.Failure != "" {
		return "failure:" + exp.Failure
	}
	return pairLabel(exp.RecordingID, exp.ReleaseID)
}

func pairLabel(recordingID, releaseID string) string {
	return recordingID + "@" + releaseID
}
