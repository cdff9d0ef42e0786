package sources

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"tunebind/internal/canonical"
	"tunebind/internal/config"
	"tunebind/internal/executor"
	"tunebind/internal/logging"
	"tunebind/internal/scoring"
	"tunebind/internal/services"
)

// Query is what a provider search looks for.
type Query struct {
	Artist string
	Title  string
	Album  string
}

// Terms renders the free-text search string.
func (q Query) Terms() string {
	parts := make([]string, 0, 2)
	if a := strings.TrimSpace(q.Artist); a != "" {
		parts = append(parts, a)
	}
	if t := strings.TrimSpace(q.Title); t != "" {
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}

// Searcher returns provider candidates in the provider's rank order.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]scoring.Candidate, error)
}

// YTDLPSearch queries YouTube through the acquisition tool's search
// extractor without downloading anything.
type YTDLPSearch struct {
	binary  string
	limit   int
	timeout time.Duration
	runner  executor.Runner
	logger  *slog.Logger
}

// NewYTDLPSearch builds a searcher from the [executor] section.
func NewYTDLPSearch(cfg config.Executor, runner executor.Runner, logger *slog.Logger) *YTDLPSearch {
	if runner == nil {
		runner = executor.NewSubprocessRunner(nil, nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = 6
	}
	return &YTDLPSearch{
		binary:  cfg.Binary,
		limit:   limit,
		timeout: 2 * time.Minute,
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "provider-search"),
	}
}

type searchEntry struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Track      string   `json:"track"`
	Artist     string   `json:"artist"`
	Album      string   `json:"album"`
	Uploader   string   `json:"uploader"`
	Channel    string   `json:"channel"`
	URL        string   `json:"url"`
	WebpageURL string   `json:"webpage_url"`
	Duration   *float64 `json:"duration"`
}

// Search implements Searcher.
func (s *YTDLPSearch) Search(ctx context.Context, q Query) ([]scoring.Candidate, error) {
	terms := q.Terms()
	if terms == "" {
		return nil, services.Wrap(services.ErrValidation, "sources", "search", "empty query", nil)
	}
	spec := executor.Spec{
		Bin: s.binary,
		Args: []string{
			"--dump-json",
			"--flat-playlist",
			"--skip-download",
			"--no-warnings",
			fmt.Sprintf("ytsearch%d:%s", s.limit, terms),
		},
		Timeout: s.timeout,
	}
	result := s.runner.Run(ctx, spec)
	if err := executor.Classify("search", result); err != nil {
		return nil, err
	}
	candidates := ParseSearchOutput(result.StdoutTail)
	logging.WithContext(ctx, s.logger).Debug("provider search finished",
		logging.String("terms", terms),
		logging.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// ParseSearchOutput reads one JSON object per line and keeps their order.
// Lines that are not entries are skipped.
func ParseSearchOutput(output string) []scoring.Candidate {
	var out []scoring.Candidate
	seen := map[string]struct{}{}
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var entry searchEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil || entry.ID == "" {
			continue
		}
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}
		out = append(out, entry.candidate())
	}
	return out
}

func (e searchEntry) candidate() scoring.Candidate {
	raw := e.WebpageURL
	if raw == "" {
		raw = e.URL
	}
	link, platform, err := canonical.CanonicalURL(raw)
	if err != nil {
		link, platform = youtubeWatchURL+e.ID, canonical.PlatformYouTube
	}
	source := scoring.SourceYouTube
	switch {
	case platform == canonical.PlatformYouTubeMusic || isTopicChannel(e.Channel) || isTopicChannel(e.Uploader):
		source = scoring.SourceYouTubeMusic
	case platform == canonical.PlatformSoundCloud:
		source = scoring.SourceSoundCloud
	case platform == canonical.PlatformBandcamp:
		source = scoring.SourceBandcamp
	}
	artist, title := e.detect()
	c := scoring.Candidate{
		ID:     e.ID,
		Source: source,
		URL:    link,
		Title:  title,
		Artist: artist,
		Album:  strings.TrimSpace(e.Album),
	}
	if e.Duration != nil && *e.Duration > 0 {
		c.DurationMS = int(math.Round(*e.Duration * 1000))
	}
	return c
}

// detect picks the artist from the explicit field, then an "Artist - Title"
// prefix, then the uploader.
func (e searchEntry) detect() (string, string) {
	title := strings.TrimSpace(e.Track)
	if artist := firstArtist(e.Artist); artist != "" {
		if title == "" {
			_, title = SplitArtistTitle(e.Title)
		}
		return artist, title
	}
	if artist, rest := SplitArtistTitle(e.Title); artist != "" {
		if title == "" {
			title = rest
		}
		return artist, title
	}
	if title == "" {
		title = strings.TrimSpace(e.Title)
	}
	uploader := e.Channel
	if uploader == "" {
		uploader = e.Uploader
	}
	return cleanUploader(uploader), title
}

var titleSeparators = []string{" - ", " – ", " — ", " | "}

// SplitArtistTitle splits "Artist - Title". When no separator is present
// the artist is empty and the title is returned trimmed.
func SplitArtistTitle(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	for _, sep := range titleSeparators {
		if artist, title, ok := strings.Cut(raw, sep); ok {
			artist, title = strings.TrimSpace(artist), strings.TrimSpace(title)
			if artist != "" && title != "" {
				return artist, title
			}
		}
	}
	return "", raw
}

func firstArtist(value string) string {
	value = strings.TrimSpace(value)
	if first, _, ok := strings.Cut(value, ","); ok {
		return strings.TrimSpace(first)
	}
	return value
}

func isTopicChannel(name string) bool {
	return strings.HasSuffix(strings.TrimSpace(name), " - Topic")
}

func cleanUploader(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, " - Topic")
	name = strings.TrimSuffix(name, "VEVO")
	name = strings.TrimSuffix(name, " Official")
	return strings.TrimSpace(name)
}
