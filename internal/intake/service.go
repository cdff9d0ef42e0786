package intake

import (
	"context"
	"log/slog"
	"strings"

	"tunebind/internal/binding"
	"tunebind/internal/canonical"
	"tunebind/internal/config"
	"tunebind/internal/logging"
	"tunebind/internal/notifications"
	"tunebind/internal/queue"
	"tunebind/internal/services"
)

// Resolver binds intents to canonical recording/release pairs.
type Resolver interface {
	Resolve(ctx context.Context, intent binding.Intent) (*binding.Selection, error)
	ExpandAlbum(ctx context.Context, releaseGroupID string) (*binding.AlbumExpansion, error)
}

// Options carries the envelope fields shared by every enqueue call.
type Options struct {
	Origin       queue.Origin
	Destination  string
	CollectionID string
	BatchID      string
	// AudioFormat overrides executor.audio_format for music jobs.
	AudioFormat string
	// SourceURL pins the provider item for a music job and skips provider
	// search.
	SourceURL string
	Force     bool
}

// Result is the outcome of one enqueue.
type Result struct {
	Job       *queue.Job
	Created   bool
	Selection *binding.Selection
}

// Service implements the intake operations.
type Service struct {
	cfg      *config.Config
	store    *queue.Store
	resolver Resolver
	notifier notifications.Service
	logger   *slog.Logger
}

// New wires the intake service. A nil notifier disables notifications.
func New(cfg *config.Config, store *queue.Store, resolver Resolver, notifier notifications.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "intake"),
	}
}

// EnqueueSearchIntent binds intent and enqueues one music job for the bound
// pair. A *binding.Failure is returned, and recorded, when no acceptable pair
// exists.
func (s *Service) EnqueueSearchIntent(ctx context.Context, intent binding.Intent, opts Options) (*Result, error) {
	if opts.Origin == "" {
		opts.Origin = queue.OriginSearch
	}
	sel, err := s.Bind(ctx, intent, opts)
	if err != nil {
		return nil, err
	}
	return s.EnqueueBound(ctx, sel, intent.AlbumContext, opts)
}

// Bind resolves intent without touching the queue. Binding failures are
// recorded against opts.BatchID and announced.
func (s *Service) Bind(ctx context.Context, intent binding.Intent, opts Options) (*binding.Selection, error) {
	if s.resolver == nil {
		return nil, services.Wrap(services.ErrConfiguration, "intake", "bind", "no resolver configured", nil)
	}
	sel, err := s.resolver.Resolve(ctx, intent)
	if err != nil {
		if failure, ok := binding.AsFailure(err); ok {
			s.recordBindingFailure(ctx, logging.WithContext(ctx, s.logger), intent, opts, failure)
		}
		return nil, err
	}
	return sel, nil
}

// EnqueueBound enqueues a music job for an already bound selection.
func (s *Service) EnqueueBound(ctx context.Context, sel *binding.Selection, albumContext bool, opts Options) (*Result, error) {
	if sel == nil {
		return nil, services.Wrap(services.ErrValidation, "intake", "enqueue bound", "selection is required", nil)
	}
	if opts.Origin == "" {
		opts.Origin = queue.OriginSearch
	}
	result, err := s.enqueuePair(ctx, sel.Pair, albumContext, opts)
	if err != nil {
		return nil, err
	}
	result.Selection = sel
	return result, nil
}

func (s *Service) enqueuePair(ctx context.Context, pair binding.BoundPair, albumContext bool, opts Options) (*Result, error) {
	key, err := canonical.MusicKey(pair.RecordingID, pair.ReleaseID)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "intake", "canonical key", "bound pair has no identity", err)
	}
	sourceURL := strings.TrimSpace(opts.SourceURL)
	if sourceURL != "" {
		if sourceURL, _, err = canonical.CanonicalURL(sourceURL); err != nil {
			return nil, services.Wrap(services.ErrValidation, "intake", "source url", opts.SourceURL, err)
		}
	}
	payload := queue.Payload{
		Destination:  opts.Destination,
		CollectionID: opts.CollectionID,
		BatchID:      opts.BatchID,
		Variant: &queue.MusicPayload{
			Pair:         pair,
			SourceURL:    sourceURL,
			AudioFormat:  opts.AudioFormat,
			AlbumContext: albumContext,
		},
	}
	return s.enqueue(ctx, key, payload, opts)
}

func (s *Service) enqueue(ctx context.Context, key string, payload queue.Payload, opts Options) (*Result, error) {
	job, created, err := s.store.Enqueue(ctx, queue.EnqueueRequest{
		CanonicalKey: key,
		Origin:       opts.Origin,
		Payload:      payload,
		MaxAttempts:  s.cfg.Workflow.MaxAttempts,
		Force:        opts.Force,
	})
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, s.logger)
	if created {
		logger.Info("job enqueued",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String(logging.FieldCanonicalKey, key),
			logging.String("origin", string(opts.Origin)),
			logging.String(logging.FieldEventType, "job_enqueued"),
		)
	} else {
		logger.Debug("enqueue deduplicated",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String(logging.FieldCanonicalKey, key),
			logging.String("existing_status", string(job.Status)),
		)
	}
	return &Result{Job: job, Created: created}, nil
}

func (s *Service) recordBindingFailure(ctx context.Context, logger *slog.Logger, intent binding.Intent, opts Options, failure *binding.Failure) {
	logger.Warn("binding failed",
		logging.String("artist", intent.Artist),
		logging.String("title", intent.Title),
		logging.String(logging.FieldReason, string(failure.Reason)),
		logging.String(logging.FieldEventType, "binding_failed"),
	)
	if err := s.store.RecordBindingFailure(ctx, queue.BindingFailure{
		BatchID: opts.BatchID,
		Origin:  opts.Origin,
		Artist:  intent.Artist,
		Title:   intent.Title,
		Album:   intent.Album,
		Reason:  string(failure.Reason),
		Detail:  failure.Detail,
	}); err != nil {
		logging.WarnWithContext(logger, "binding failure not recorded", "binding_failure_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "failure will not appear in tunebind failures"),
		)
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, notifications.EventBindingFailed, notifications.Payload{
		"artist": intent.Artist,
		"title":  intent.Title,
		"reason": string(failure.Reason),
	}); err != nil {
		logger.Debug("binding failure notification failed", logging.Error(err))
	}
}
