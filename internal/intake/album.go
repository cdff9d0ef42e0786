package intake

import (
	"context"

	"tunebind/internal/binding"
	"tunebind/internal/logging"
	"tunebind/internal/queue"
	"tunebind/internal/services"
)

// AlbumResult reports the jobs produced for one release group.
type AlbumResult struct {
	Expansion *binding.AlbumExpansion
	Jobs      []*Result
	Created   int
}

// EnqueueAlbum expands a release group into its chosen release's tracks and
// enqueues one job per track. Tracks already queued are deduplicated by the
// store.
func (s *Service) EnqueueAlbum(ctx context.Context, releaseGroupID string, opts Options) (*AlbumResult, error) {
	if opts.Origin == "" {
		opts.Origin = queue.OriginAlbum
	}
	if s.resolver == nil {
		return nil, services.Wrap(services.ErrConfiguration, "intake", "enqueue album", "no resolver configured", nil)
	}
	expansion, err := s.resolver.ExpandAlbum(ctx, releaseGroupID)
	if err != nil {
		if failure, ok := binding.AsFailure(err); ok {
			s.recordBindingFailure(ctx, logging.WithContext(ctx, s.logger),
				binding.Intent{Album: releaseGroupID}, opts, failure)
		}
		return nil, err
	}
	out := &AlbumResult{Expansion: expansion, Jobs: make([]*Result, 0, len(expansion.Pairs))}
	for _, pair := range expansion.Pairs {
		res, err := s.enqueuePair(ctx, pair, true, opts)
		if err != nil {
			return out, err
		}
		out.Jobs = append(out.Jobs, res)
		if res.Created {
			out.Created++
		}
	}
	logging.WithContext(ctx, s.logger).Info("album enqueued",
		logging.String("release_group_id", expansion.ReleaseGroupID),
		logging.String("release_id", expansion.ReleaseID),
		logging.Int("tracks", len(expansion.Pairs)),
		logging.Int("created", out.Created),
		logging.String(logging.FieldEventType, "album_enqueued"),
	)
	return out, nil
}
