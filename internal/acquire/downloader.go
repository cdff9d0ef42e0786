package acquire

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"tunebind/internal/config"
	"tunebind/internal/deps"
	"tunebind/internal/executor"
	"tunebind/internal/logging"
	"tunebind/internal/queue"
	"tunebind/internal/scoring"
	"tunebind/internal/services"
	"tunebind/internal/sources"
	"tunebind/internal/stage"
	"tunebind/internal/staging"
)

// Downloader runs the acquisition executor for one job.
type Downloader struct {
	cfg      *config.Config
	executor *executor.Executor
	search   sources.Searcher
	policy   scoring.Policy
	logger   *slog.Logger
}

// NewDownloader wires the step. search may be nil when every music job is
// expected to carry a pinned source.
func NewDownloader(cfg *config.Config, exec *executor.Executor, search sources.Searcher, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Downloader{
		cfg:      cfg,
		executor: exec,
		search:   search,
		policy:   scoring.PolicyFromConfig(cfg.Scoring, cfg.MusicBrainz.PreferredCountry),
		logger:   logging.NewComponentLogger(logger, "acquire"),
	}
}

// SetLogger implements stage.LoggerAware.
func (d *Downloader) SetLogger(logger *slog.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// WorkDir is the staging directory of job id.
func WorkDir(stagingDir string, id int64) string {
	return staging.JobDir(stagingDir, id)
}

// Prepare resets the staging directory and resolves the source URL.
func (d *Downloader) Prepare(ctx context.Context, work *stage.Work) error {
	job := work.Job
	work.WorkDir = WorkDir(d.cfg.Paths.StagingDir, job.ID)
	if err := os.RemoveAll(work.WorkDir); err != nil {
		return services.Wrap(services.ErrTransient, "acquire", "reset staging", work.WorkDir, err)
	}
	if err := os.MkdirAll(work.WorkDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "acquire", "create staging", work.WorkDir, err)
	}

	switch v := job.Payload.Variant.(type) {
	case *queue.VideoPayload:
		work.SourceURL = v.URL
		return nil
	case *queue.MusicPayload:
		if strings.TrimSpace(v.SourceURL) != "" {
			work.SourceURL = v.SourceURL
			return nil
		}
		url, err := d.resolveMusicSource(ctx, v)
		if err != nil {
			return err
		}
		work.SourceURL = url
		return nil
	default:
		return services.Wrap(services.ErrValidation, "acquire", "prepare", "job has no media variant", nil)
	}
}

func (d *Downloader) resolveMusicSource(ctx context.Context, music *queue.MusicPayload) (string, error) {
	logger := logging.WithContext(ctx, d.logger)
	if d.search == nil {
		return "", services.Wrap(services.ErrConfiguration, "acquire", "resolve source", "no provider search configured", nil)
	}
	pair := music.Pair
	candidates, err := d.search.Search(ctx, sources.Query{Artist: pair.ArtistCredit, Title: pair.Title, Album: pair.Album})
	if err != nil {
		return "", err
	}
	winner, results, err := SelectSource(candidates, pair, music.AlbumContext, d.policy)
	for _, r := range results {
		decision := logging.Decision{Type: "provider_candidate", Result: "accepted"}
		if !r.Passed() {
			decision.Result, decision.Reason = "rejected", string(r.Rejection)
		}
		logger.Debug("provider candidate scored", logging.Args(decision.Attrs(
			logging.String("candidate", r.Candidate.ID),
			logging.String("source", string(r.Candidate.Source)),
			logging.Score("final", r.Final),
		)...)...)
	}
	if err != nil {
		return "", err
	}
	logger.Info("provider source selected",
		logging.String("candidate", winner.Candidate.ID),
		logging.String("url", winner.Candidate.URL),
		logging.Score("final", winner.Final),
		logging.String(logging.FieldEventType, "source_selected"),
	)
	return winner.Candidate.URL, nil
}

// Execute runs the executor and verifies its output.
func (d *Downloader) Execute(ctx context.Context, work *stage.Work) error {
	req, err := executor.BuildRequest(work.Job.Payload, work.SourceURL, d.cfg.Executor)
	if err != nil {
		return err
	}
	path, err := d.executor.Download(ctx, req, work.WorkDir)
	if err != nil {
		return err
	}
	if err := executor.VerifyOutput(path); err != nil {
		return err
	}
	work.DownloadedPath = path
	logging.WithContext(ctx, d.logger).Info("download verified",
		logging.String("path", path),
		logging.String(logging.FieldEventType, "download_verified"),
	)
	return nil
}

// HealthCheck reports whether the executor binary resolves.
func (d *Downloader) HealthCheck(context.Context) stage.Health {
	const name = "acquire"
	statuses := deps.CheckBinaries([]deps.Requirement{{Name: "yt-dlp", Command: d.cfg.Executor.Binary}})
	if len(statuses) == 1 && !statuses[0].Available {
		return stage.Unhealthy(name, statuses[0].Detail)
	}
	return stage.Healthy(name)
}
