package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tunebind/internal/config"
	"tunebind/internal/logging"
	"tunebind/internal/services"
)

// Authority is the metadata authority surface the binding resolver needs.
type Authority interface {
	SearchRecordings(ctx context.Context, query RecordingQuery) ([]Recording, error)
	GetRecording(ctx context.Context, id string, includes []string) (*Recording, error)
	GetRelease(ctx context.Context, id string, includes []string) (*Release, error)
	GetReleaseGroup(ctx context.Context, id string, includes []string) (*ReleaseGroup, error)
}

// Client talks to the MusicBrainz web service (JSON, ws/2).
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *responseCache
	maxRetries int
	retryBase  time.Duration
	logger     *slog.Logger
}

var _ Authority = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMinInterval sets the minimum spacing between outbound requests.
// Zero disables client-side throttling.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithCacheTTL enables the in-memory lookup cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = newResponseCache(ttl)
	}
}

// WithRetry sets how many times a 429/5xx response is retried and the base
// delay used when the server sends no Retry-After header.
func WithRetry(maxRetries int, base time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if base >= 0 {
			c.retryBase = base
		}
	}
}

// WithLogger attaches a logger for retry and cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "musicbrainz")
	}
}

// New creates a MusicBrainz client. The authority rejects anonymous clients,
// so userAgent is required.
func New(baseURL, userAgent string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("musicbrainz base url required")
	}
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return nil, errors.New("musicbrainz user agent required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		maxRetries: 3,
		retryBase:  time.Second,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the [musicbrainz] section.
func NewFromConfig(cfg config.MusicBrainz, logger *slog.Logger) (*Client, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return New(cfg.BaseURL, cfg.UserAgent,
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithMinInterval(time.Duration(cfg.MinIntervalMS)*time.Millisecond),
		WithCacheTTL(time.Duration(cfg.CacheTTLSeconds)*time.Second),
		WithLogger(logger),
	)
}

// SearchRecordings runs a Lucene recording search. Results keep the
// authority's relevance order.
func (c *Client) SearchRecordings(ctx context.Context, query RecordingQuery) ([]Recording, error) {
	lucene := query.Lucene()
	if lucene == "" {
		return nil, errors.New("recording query must not be empty")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("query", lucene)
	params.Set("limit", strconv.Itoa(limit))

	var payload recordingSearchResponse
	if err := c.get(ctx, "/recording", params, &payload); err != nil {
		return nil, err
	}
	return payload.Recordings, nil
}

// GetRecording looks up a recording by MBID.
func (c *Client) GetRecording(ctx context.Context, id string, includes []string) (*Recording, error) {
	var out Recording
	if err := c.lookup(ctx, EntityRecording, id, includes, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRelease looks up a release by MBID.
func (c *Client) GetRelease(ctx context.Context, id string, includes []string) (*Release, error) {
	var out Release
	if err := c.lookup(ctx, EntityRelease, id, includes, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReleaseGroup looks up a release group by MBID.
func (c *Client) GetReleaseGroup(ctx context.Context, id string, includes []string) (*ReleaseGroup, error) {
	var out ReleaseGroup
	if err := c.lookup(ctx, EntityReleaseGroup, id, includes, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) lookup(ctx context.Context, entity, id string, includes []string, out any) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%s id must not be empty", entity)
	}
	inc, err := ValidateIncludes(entity, includes)
	if err != nil {
		return err
	}
	params := url.Values{}
	if inc != "" {
		params.Set("inc", inc)
	}
	return c.get(ctx, "/"+entity+"/"+url.PathEscape(id), params, out)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	params.Set("fmt", "json")
	endpoint := c.baseURL + path + "?" + params.Encode()

	if body, ok := c.cache.get(endpoint); ok {
		return decode(body, out)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return services.Wrap(services.ErrCancelled, "musicbrainz", "rate limit", "wait aborted", err)
		}
		body, retryAfter, err := c.do(ctx, endpoint)
		if err == nil {
			c.cache.put(endpoint, body)
			return decode(body, out)
		}
		lastErr = err
		if !errors.Is(err, services.ErrTransient) || attempt == c.maxRetries {
			break
		}
		delay := retryAfter
		if delay <= 0 {
			delay = c.retryBase << attempt
		}
		c.logger.Debug("musicbrainz request retry",
			logging.String(logging.FieldEventType, "musicbrainz_retry"),
			logging.Int("attempt", attempt+1),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := sleep(ctx, delay); err != nil {
			return services.Wrap(services.ErrCancelled, "musicbrainz", "retry", "backoff aborted", err)
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, services.Wrap(services.ErrTransient, "musicbrainz", "request", fmt.Sprintf("latency=%v", latency), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, 0, services.Wrap(services.ErrTransient, "musicbrainz", "read body", "", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, 0, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, services.Wrap(services.ErrNotFound, "musicbrainz", "lookup", fmt.Sprintf("status 404 for %s", redact(endpoint)), nil)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		msg := fmt.Sprintf("status %d (latency=%v)", resp.StatusCode, latency)
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), services.Wrap(services.ErrTransient, "musicbrainz", "request", msg, nil)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, 0, services.Wrap(services.ErrValidation, "musicbrainz", "request", "status 400: "+snippet(body), nil)
	default:
		msg := fmt.Sprintf("status %d (latency=%v)", resp.StatusCode, latency)
		return nil, 0, services.Wrap(services.ErrExternalTool, "musicbrainz", "request", msg, nil)
	}
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrExternalTool, "musicbrainz", "decode", "invalid json", err)
	}
	return nil
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func redact(endpoint string) string {
	if idx := strings.Index(endpoint, "?"); idx >= 0 {
		return endpoint[:idx]
	}
	return endpoint
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
