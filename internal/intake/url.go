package intake

import (
	"context"

	"tunebind/internal/binding"
	"tunebind/internal/canonical"
	"tunebind/internal/queue"
	"tunebind/internal/services"
)

// VideoOptions shapes a direct video job.
type VideoOptions struct {
	Options
	Title     string
	Container string
	MaxHeight int
}

// EnqueueVideoURL enqueues a video job keyed by the canonical form of raw.
func (s *Service) EnqueueVideoURL(ctx context.Context, raw string, opts VideoOptions) (*Result, error) {
	if opts.Origin == "" {
		opts.Origin = queue.OriginDirect
	}
	key, url, err := urlIdentity(raw)
	if err != nil {
		return nil, err
	}
	payload := queue.Payload{
		Destination:  opts.Destination,
		CollectionID: opts.CollectionID,
		BatchID:      opts.BatchID,
		Variant: &queue.VideoPayload{
			URL:       url,
			Title:     opts.Title,
			Container: opts.Container,
			MaxHeight: opts.MaxHeight,
		},
	}
	return s.enqueue(ctx, key, payload, opts.Options)
}

// EnqueueMusicURL binds intent and enqueues a music job whose provider item
// is pinned to raw. The job's identity is still the bound pair.
func (s *Service) EnqueueMusicURL(ctx context.Context, raw string, intent binding.Intent, opts Options) (*Result, error) {
	if opts.Origin == "" {
		opts.Origin = queue.OriginDirect
	}
	if _, _, err := urlIdentity(raw); err != nil {
		return nil, err
	}
	opts.SourceURL = raw
	return s.EnqueueSearchIntent(ctx, intent, opts)
}

func urlIdentity(raw string) (key, url string, err error) {
	url, _, err = canonical.CanonicalURL(raw)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "intake", "canonicalize url", raw, err)
	}
	key, err = canonical.URLKey(url)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "intake", "canonical key", raw, err)
	}
	return key, url, nil
}
