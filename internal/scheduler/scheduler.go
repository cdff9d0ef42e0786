package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tunebind/internal/binding"
	"tunebind/internal/canonical"
	"tunebind/internal/config"
	"tunebind/internal/intake"
	"tunebind/internal/logging"
	"tunebind/internal/notifications"
	"tunebind/internal/queue"
	"tunebind/internal/services"
	"tunebind/internal/sources"
)

// RunSummary counts what one tick did with a collection's items.
//
// Skipped covers unchanged items and additions that already had an active
// job. Completed counts additions whose key already completed. Failed counts
// additions that could not be bound or identified.
type RunSummary struct {
	CollectionID string
	Added        int
	Removed      int
	Skipped      int
	Completed    int
	Failed       int
	Unchanged    bool
}

// Scheduler runs ticks against configured collections.
type Scheduler struct {
	cfg      *config.Config
	store    *queue.Store
	intake   *intake.Service
	sources  sources.Registry
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time

	lastRun map[string]time.Time
}

// New builds a scheduler. A nil notifier disables scheduler notifications.
func New(cfg *config.Config, store *queue.Store, svc *intake.Service, registry sources.Registry, notifier notifications.Service, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		intake:   svc,
		sources:  registry,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		now:      time.Now,
		lastRun:  make(map[string]time.Time),
	}
}

// Tick polls one collection and enqueues its additions.
func (s *Scheduler) Tick(ctx context.Context, collectionID string) (RunSummary, error) {
	summary := RunSummary{CollectionID: collectionID}
	col, ok := s.cfg.CollectionByID(collectionID)
	if !ok {
		return summary, services.Wrap(services.ErrNotFound, "scheduler", "tick",
			fmt.Sprintf("collection %q is not configured", collectionID), nil)
	}
	ctx = services.WithCollection(ctx, col.ID)
	ctx = services.WithCorrelationID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, s.logger)

	src, err := s.sources.For(col)
	if err != nil {
		return summary, err
	}
	items, err := src.Items(ctx, col)
	if err != nil {
		return summary, services.Wrap(services.ErrTransient, "scheduler", "poll collection", col.ID, err)
	}
	byID := make(map[string]sources.Item, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		item.ID = strings.TrimSpace(item.ID)
		ids = append(ids, item.ID)
		if _, dup := byID[item.ID]; !dup {
			byID[item.ID] = item
		}
	}
	ids = normalizeIDs(ids)
	hash := ContentHash(ids)

	prev, err := s.store.Snapshot(ctx, col.ID)
	if err != nil {
		return summary, err
	}
	if prev != nil && prev.ContentHash == hash {
		summary.Unchanged = true
		summary.Skipped = len(ids)
		logger.Debug("collection unchanged",
			logging.String("content_hash", hash),
			logging.Int("items", len(ids)),
		)
		return summary, nil
	}

	var previous []string
	if prev != nil {
		previous = prev.ItemIDs
	}
	diff := Compare(previous, ids)
	summary.Removed = len(diff.Removed)
	summary.Skipped = len(diff.Unchanged)

	batchID := "tick-" + uuid.NewString()
	for _, id := range diff.Added {
		outcome, err := s.enqueueItem(ctx, col, byID[id], batchID)
		if err != nil {
			logging.WarnWithContext(logger, "tick aborted; snapshot not saved", "scheduler_tick_aborted",
				logging.String("item_id", id),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the same additions will be retried next tick"),
			)
			return summary, err
		}
		switch outcome {
		case outcomeAdded:
			summary.Added++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeCompleted:
			summary.Completed++
		case outcomeFailed:
			summary.Failed++
		}
	}

	if err := s.store.SaveSnapshot(ctx, queue.Snapshot{
		CollectionID: col.ID,
		ContentHash:  hash,
		ItemIDs:      ids,
	}); err != nil {
		return summary, err
	}

	if len(diff.Removed) > 0 {
		logger.Info("collection items removed upstream",
			logging.Int("removed", len(diff.Removed)),
			logging.Any("item_ids", diff.Removed),
		)
	}
	logger.Info("collection tick complete",
		logging.Int("added", summary.Added),
		logging.Int("removed", summary.Removed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.String(logging.FieldEventType, "scheduler_tick"),
	)
	s.notifyAdded(ctx, logger, col.ID, summary.Added)
	return summary, nil
}

type outcome int

const (
	outcomeAdded outcome = iota
	outcomeSkipped
	outcomeCompleted
	outcomeFailed
)

// enqueueItem handles one added item. A returned error aborts the tick;
// item-level rejections are reported through the outcome instead.
func (s *Scheduler) enqueueItem(ctx context.Context, col config.Collection, item sources.Item, batchID string) (outcome, error) {
	opts := intake.Options{
		Origin:       originFor(col),
		Destination:  col.Destination,
		CollectionID: col.ID,
		BatchID:      batchID,
	}
	if col.MediaType == "video" {
		return s.enqueueVideo(ctx, col, item, opts)
	}
	return s.enqueueMusic(ctx, col, item, opts)
}

func (s *Scheduler) enqueueMusic(ctx context.Context, col config.Collection, item sources.Item, opts intake.Options) (outcome, error) {
	logger := logging.WithContext(ctx, s.logger)
	opts.AudioFormat = col.Format
	if canonicalURL, _, err := canonical.CanonicalURL(item.URL); err == nil {
		opts.SourceURL = canonicalURL
	}
	intent := binding.Intent{
		Artist:     item.Artist,
		Title:      item.Title,
		Album:      item.Album,
		DurationMS: item.DurationMS,
	}
	sel, err := s.intake.Bind(ctx, intent, opts)
	if err != nil {
		if _, ok := binding.AsFailure(err); ok {
			return outcomeFailed, nil
		}
		return 0, err
	}
	key, err := canonical.MusicKey(sel.Pair.RecordingID, sel.Pair.ReleaseID)
	if err != nil {
		logger.Warn("bound pair has no identity", logging.String("item_id", item.ID), logging.Error(err))
		return outcomeFailed, nil
	}
	if skip, err := s.activeKey(ctx, key); err != nil || skip {
		return outcomeSkipped, err
	}
	res, err := s.intake.EnqueueBound(ctx, sel, false, opts)
	if err != nil {
		return 0, err
	}
	return resultOutcome(res), nil
}

func (s *Scheduler) enqueueVideo(ctx context.Context, col config.Collection, item sources.Item, opts intake.Options) (outcome, error) {
	logger := logging.WithContext(ctx, s.logger)
	key, err := canonical.URLKey(item.URL)
	if err != nil {
		logger.Warn("collection item has no usable url",
			logging.String("item_id", item.ID),
			logging.String("url", item.URL),
			logging.Error(err),
		)
		return outcomeFailed, nil
	}
	if skip, err := s.activeKey(ctx, key); err != nil || skip {
		return outcomeSkipped, err
	}
	res, err := s.intake.EnqueueVideoURL(ctx, item.URL, intake.VideoOptions{
		Options:   opts,
		Title:     item.Title,
		Container: col.Format,
	})
	if err != nil {
		return 0, err
	}
	return resultOutcome(res), nil
}

// activeKey reports whether key already has a job in flight.
func (s *Scheduler) activeKey(ctx context.Context, key string) (bool, error) {
	job, err := s.store.FindActiveByKey(ctx, key)
	if err != nil {
		return false, err
	}
	if job != nil {
		logging.WithContext(ctx, s.logger).Debug("active job exists; skipping",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String(logging.FieldCanonicalKey, key),
			logging.String("status", string(job.Status)),
		)
		return true, nil
	}
	return false, nil
}

func resultOutcome(res *intake.Result) outcome {
	switch {
	case res.Created:
		return outcomeAdded
	case res.Job != nil && res.Job.Status == queue.StatusCompleted:
		return outcomeCompleted
	default:
		return outcomeSkipped
	}
}

func originFor(col config.Collection) queue.Origin {
	if col.Source == "spotify" {
		return queue.OriginSpotify
	}
	return queue.OriginScheduler
}

func (s *Scheduler) notifyAdded(ctx context.Context, logger *slog.Logger, collectionID string, added int) {
	if s.notifier == nil || added == 0 {
		return
	}
	if err := s.notifier.Publish(ctx, notifications.EventSchedulerAdded, notifications.Payload{
		"collection": collectionID,
		"added":      added,
	}); err != nil {
		logger.Debug("scheduler notification failed", logging.Error(err))
	}
}

// due reports whether col should be polled at now.
func (s *Scheduler) due(col config.Collection, now time.Time) bool {
	last, ok := s.lastRun[col.ID]
	if !ok {
		return true
	}
	return now.Sub(last) >= time.Duration(col.Interval)*time.Second
}

// RunDue ticks every enabled collection whose interval has elapsed. A
// failing collection is logged and does not stop the others.
func (s *Scheduler) RunDue(ctx context.Context) []RunSummary {
	now := s.now()
	var out []RunSummary
	for _, col := range s.cfg.Collections {
		if !col.Enabled || !s.due(col, now) {
			continue
		}
		if ctx.Err() != nil {
			return out
		}
		summary, err := s.Tick(ctx, col.ID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return out
			}
			logging.WarnWithContext(s.logger, "collection tick failed", "scheduler_tick_failed",
				logging.String(logging.FieldCollection, col.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the collection url and source credentials"),
			)
			continue
		}
		s.lastRun[col.ID] = now
		out = append(out, summary)
	}
	return out
}

// Loop runs RunDue on the configured tick interval until ctx is done.
func (s *Scheduler) Loop(ctx context.Context) error {
	interval := time.Duration(s.cfg.Scheduler.TickInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s.logger.Info("scheduler started",
		logging.Int("collections", len(s.cfg.Collections)),
		logging.Duration("tick_interval", interval),
	)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.RunDue(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}
