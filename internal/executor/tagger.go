package executor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tunebind/internal/binding"
	"tunebind/internal/config"
	"tunebind/internal/logging"
	"tunebind/internal/services"
)

// Tagger embeds bound metadata into a downloaded audio file with ffmpeg.
// Every failure is a postprocess error and is never retried.
type Tagger struct {
	binary  string
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
}

// NewTagger builds a tagger using cfg.FFmpegBinary.
func NewTagger(cfg config.Executor, runner Runner, logger *slog.Logger) *Tagger {
	if runner == nil {
		runner = NewSubprocessRunner(nil, nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tagger{
		binary:  cfg.FFmpegBinary,
		runner:  runner,
		timeout: 5 * time.Minute,
		logger:  logging.NewComponentLogger(logger, "tagger"),
	}
}

// Metadata returns the tag set written for pair, in a stable order.
func Metadata(pair binding.BoundPair) [][2]string {
	albumArtist := pair.AlbumArtist
	if albumArtist == "" {
		albumArtist = pair.ArtistCredit
	}
	return [][2]string{
		{"title", pair.Title},
		{"artist", pair.ArtistCredit},
		{"album", pair.Album},
		{"album_artist", albumArtist},
		{"date", pair.ReleaseDate},
		{"track", strconv.Itoa(pair.TrackNumber)},
		{"disc", strconv.Itoa(pair.DiscNumber)},
		{"MUSICBRAINZ_TRACKID", pair.RecordingID},
		{"MUSICBRAINZ_ALBUMID", pair.ReleaseID},
		{"MUSICBRAINZ_RELEASEGROUPID", pair.ReleaseGroupID},
	}
}

// Tag rewrites path in place with pair's metadata.
func (t *Tagger) Tag(ctx context.Context, path string, pair binding.BoundPair) error {
	if !pair.Complete() {
		return services.WrapReason(services.ErrPostprocess, "tagger", "tag", "incomplete_pair", "refusing to tag with an incomplete binding", nil)
	}
	ext := filepath.Ext(path)
	tmp := strings.TrimSuffix(path, ext) + ".tagging" + ext

	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", path, "-map", "0", "-codec", "copy"}
	for _, kv := range Metadata(pair) {
		args = append(args, "-metadata", kv[0]+"="+kv[1])
	}
	if strings.EqualFold(ext, ".mp3") {
		args = append(args, "-id3v2_version", "3")
	}
	args = append(args, tmp)

	result := t.runner.Run(ctx, Spec{Bin: t.binary, Args: args, Dir: filepath.Dir(path), Timeout: t.timeout})
	if result.Interrupted {
		_ = os.Remove(tmp)
		return services.WrapReason(services.ErrCancelled, "tagger", "tag", "cancelled", "tagging interrupted", result.Err)
	}
	if result.ExitCode != 0 || result.Err != nil {
		_ = os.Remove(tmp)
		detail := lastLine(result.StderrTail)
		if detail == "" {
			detail = "exit status " + strconv.Itoa(result.ExitCode)
		}
		return services.WrapReason(services.ErrPostprocess, "tagger", "tag", "tagging_failed", detail, result.Err)
	}
	info, err := os.Stat(tmp)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(tmp)
		return services.WrapReason(services.ErrPostprocess, "tagger", "tag", "tagging_failed", "tagger produced no output", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return services.WrapReason(services.ErrPostprocess, "tagger", "replace", "tagging_failed", "replace tagged file", err)
	}
	logging.WithContext(ctx, t.logger).Debug("tags embedded",
		logging.String("path", path),
		logging.String("recording_id", pair.RecordingID),
	)
	return nil
}
