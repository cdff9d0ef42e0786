package organizer

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"tunebind/internal/binding"
	"tunebind/internal/config"
	"tunebind/internal/deps"
	"tunebind/internal/executor"
	"tunebind/internal/fileutil"
	"tunebind/internal/logging"
	"tunebind/internal/queue"
	"tunebind/internal/services"
	"tunebind/internal/stage"
)

// Tagger embeds bound metadata into an audio file.
type Tagger interface {
	Tag(ctx context.Context, path string, pair binding.BoundPair) error
}

// Organizer moves verified downloads into the library.
type Organizer struct {
	cfg    *config.Config
	tagger Tagger
	logger *slog.Logger
}

// NewOrganizer constructs the step with the ffmpeg tagger.
func NewOrganizer(cfg *config.Config, logger *slog.Logger) *Organizer {
	return NewOrganizerWithTagger(cfg, executor.NewTagger(cfg.Executor, nil, logger), logger)
}

// NewOrganizerWithTagger allows injecting the tagger (used in tests).
func NewOrganizerWithTagger(cfg *config.Config, tagger Tagger, logger *slog.Logger) *Organizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Organizer{cfg: cfg, tagger: tagger, logger: logging.NewComponentLogger(logger, "organizer")}
}

// SetLogger implements stage.LoggerAware.
func (o *Organizer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		o.logger = logger
	}
}

// Prepare resolves the destination path.
func (o *Organizer) Prepare(_ context.Context, work *stage.Work) error {
	if strings.TrimSpace(work.DownloadedPath) == "" {
		return services.WrapReason(services.ErrPostprocess, "organizer", "validate inputs", "missing_download",
			"no downloaded file to organize", nil)
	}
	target, err := o.Target(work.Job, work.DownloadedPath)
	if err != nil {
		return err
	}
	work.FinalPath = target
	return nil
}

// Target computes where job's downloaded file belongs.
func (o *Organizer) Target(job *queue.Job, downloaded string) (string, error) {
	ext := filepath.Ext(downloaded)
	switch v := job.Payload.Variant.(type) {
	case *queue.MusicPayload:
		if !v.Pair.Complete() {
			return "", services.WrapReason(services.ErrPostprocess, "organizer", "resolve target", "incomplete_pair",
				"refusing to place a file without a complete binding", nil)
		}
		root := firstNonEmpty(job.Payload.Destination, o.cfg.Paths.LibraryDir)
		if root == "" {
			return "", services.Wrap(services.ErrConfiguration, "organizer", "resolve target", "paths.library_dir is not set", nil)
		}
		return MusicPath(root, v.Pair, ext)
	case *queue.VideoPayload:
		root := firstNonEmpty(job.Payload.Destination, o.cfg.Paths.VideoDir)
		if root == "" {
			return "", services.Wrap(services.ErrConfiguration, "organizer", "resolve target", "paths.video_dir is not set", nil)
		}
		base := strings.TrimSuffix(filepath.Base(downloaded), ext)
		return VideoPath(root, v.Title, base, ext), nil
	default:
		return "", services.Wrap(services.ErrValidation, "organizer", "resolve target", "job has no media variant", nil)
	}
}

// Execute tags music files and moves the file into place.
func (o *Organizer) Execute(ctx context.Context, work *stage.Work) error {
	logger := logging.WithContext(ctx, o.logger)
	if music := work.Job.Payload.Music(); music != nil {
		if err := o.tagger.Tag(ctx, work.DownloadedPath, music.Pair); err != nil {
			return err
		}
	}
	if err := fileutil.MoveFile(work.DownloadedPath, work.FinalPath); err != nil {
		return services.WrapReason(services.ErrPostprocess, "organizer", "move to library", "move_failed",
			work.FinalPath, err)
	}
	logger.Info("library move completed",
		logging.String("final_file", work.FinalPath),
		logging.String(logging.FieldEventType, "library_move_completed"),
	)
	return nil
}

// HealthCheck reports whether ffmpeg is available for tagging.
func (o *Organizer) HealthCheck(context.Context) stage.Health {
	const name = "organizer"
	status := deps.ResolveFFmpeg(o.cfg.Executor.Binary, o.cfg.Executor.FFmpegBinary)
	if !status.Available {
		return stage.Unhealthy(name, status.Detail)
	}
	return stage.Healthy(name)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
