package sources_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"tunebind/internal/config"
	"tunebind/internal/executor"
	"tunebind/internal/scoring"
	"tunebind/internal/services"
	"tunebind/internal/sources"
	"tunebind/internal/testsupport"
)

func TestSplitArtistTitle(t *testing.T) {
	cases := []struct {
		raw, artist, title string
	}{
		{"Artist - Title", "Artist", "Title"},
		{"  Band – Song (Live)  ", "Band", "Song (Live)"},
		{"Just a title", "", "Just a title"},
		{" - Leading", "", "- Leading"},
		{"A - B - C", "A", "B - C"},
	}
	for _, tc := range cases {
		artist, title := sources.SplitArtistTitle(tc.raw)
		if artist != tc.artist || title != tc.title {
			t.Fatalf("SplitArtistTitle(%q) = %q, %q; want %q, %q", tc.raw, artist, title, tc.artist, tc.title)
		}
	}
}

func TestParseSearchOutput(t *testing.T) {
	output := strings.Join([]string{
		`[youtube:search] Extracting`,
		`{"id":"aaaaaaaaaaa","title":"Band - Song (Official Video)","url":"https://www.youtube.com/watch?v=aaaaaaaaaaa","channel":"BandVEVO","duration":201.4}`,
		`{"id":"bbbbbbbbbbb","title":"Song","url":"https://www.youtube.com/watch?v=bbbbbbbbbbb","channel":"Band - Topic","duration":200}`,
		`{"id":"ccccccccccc","title":"Song","track":"Song","artist":"Band, Guest","album":"Record","webpage_url":"https://music.youtube.com/watch?v=ccccccccccc"}`,
		`{"id":"aaaaaaaaaaa","title":"duplicate"}`,
		`{"id":"ddddddddddd","title":"cover of song","uploader":"Someone Else"}`,
		`not json`,
	}, "\n")

	got := sources.ParseSearchOutput(output)
	if len(got) != 4 {
		t.Fatalf("expected 4 candidates, got %d: %+v", len(got), got)
	}
	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	if strings.Join(ids, ",") != "aaaaaaaaaaa,bbbbbbbbbbb,ccccccccccc,ddddddddddd" {
		t.Fatalf("expected rank order preserved, got %v", ids)
	}
	if got[0].Artist != "Band" || got[0].Title != "Song (Official Video)" || got[0].Source != scoring.SourceYouTube || got[0].DurationMS != 201400 {
		t.Fatalf("unexpected first candidate: %+v", got[0])
	}
	if got[1].Source != scoring.SourceYouTubeMusic || got[1].Artist != "Band" {
		t.Fatalf("expected topic channel to map to youtube music, got %+v", got[1])
	}
	if got[2].Source != scoring.SourceYouTubeMusic || got[2].Artist != "Band" || got[2].Album != "Record" {
		t.Fatalf("unexpected explicit-artist candidate: %+v", got[2])
	}
	if got[2].URL != "https://www.youtube.com/watch?v=ccccccccccc" {
		t.Fatalf("expected canonical url, got %q", got[2].URL)
	}
	if got[3].Artist != "Someone Else" || got[3].URL != "https://www.youtube.com/watch?v=ddddddddddd" {
		t.Fatalf("unexpected uploader fallback: %+v", got[3])
	}
}

func TestYTDLPSearchRunsStub(t *testing.T) {
	dir := t.TempDir()
	argsLog := filepath.Join(dir, "args.log")
	bin := testsupport.WriteScript(t, filepath.Join(dir, "yt-dlp"), `
printf '%s\n' "$@" > "`+argsLog+`"
echo '{"id":"aaaaaaaaaaa","title":"Band - Song","url":"https://www.youtube.com/watch?v=aaaaaaaaaaa"}'
`)
	cfg := config.Executor{Binary: bin, SearchLimit: 3}
	searcher := sources.NewYTDLPSearch(cfg, executor.NewSubprocessRunner(nil, nil), nil)
	got, err := searcher.Search(context.Background(), sources.Query{Artist: "Band", Title: "Song"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 || got[0].Artist != "Band" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	args := testsupport.ReadFile(t, argsLog)
	if !strings.Contains(args, "ytsearch3:Band Song") || !strings.Contains(args, "--skip-download") {
		t.Fatalf("unexpected search arguments: %s", args)
	}
}

func TestYTDLPSearchFailures(t *testing.T) {
	dir := t.TempDir()
	bin := testsupport.WriteScript(t, filepath.Join(dir, "yt-dlp"), `
echo "ERROR: Unable to download webpage: Connection reset by peer" >&2
exit 1
`)
	searcher := sources.NewYTDLPSearch(config.Executor{Binary: bin}, nil, nil)
	_, err := searcher.Search(context.Background(), sources.Query{Artist: "Band", Title: "Song"})
	if services.FailureClass(err) != services.DispositionRetry {
		t.Fatalf("expected retryable search failure, got %v", err)
	}
	if _, err := searcher.Search(context.Background(), sources.Query{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty query, got %v", err)
	}
}
