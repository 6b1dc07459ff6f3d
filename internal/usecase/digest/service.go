package digest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/infra/cache"
	"daily-digest/internal/observability/logging"
	"daily-digest/internal/observability/metrics"
	"daily-digest/internal/observability/tracing"
	"daily-digest/internal/resilience/retry"
	"daily-digest/internal/resilience/spacing"
	"daily-digest/internal/usecase/feed"
)

// Cache namespaces.
const (
	NamespaceHoroscope = "horoscope"
	NamespaceLunar     = "lunar"
	NamespaceQuote     = "quote"
	NamespaceImage     = "image"
)

// Fetchers is what the service needs from the feed layer.
type Fetchers interface {
	Configured() bool
	Lunar(ctx context.Context, day entity.Day, policy retry.Policy) feed.LunarOutcome
	Horoscope(ctx context.Context, c entity.Constellation, day entity.Day, policy retry.Policy) entity.FeedResult
	Quote(ctx context.Context, day entity.Day, policy retry.Policy) (feed.QuoteOutcome, error)
	Image(ctx context.Context, day entity.Day, policy retry.Policy) feed.ImageOutcome
}

// Caches holds one cache per feed. They are created once at startup.
type Caches struct {
	Horoscope *cache.TTL[entity.DigestSnapshot]
	Lunar     *cache.TTL[entity.LunarDigest]
	Quote     *cache.TTL[entity.Quote]
	Image     *cache.TTL[entity.DailyImage]
}

// NewCaches creates the four caches with the same options.
func NewCaches(opts ...cache.Option) Caches {
	return Caches{
		Horoscope: cache.New[entity.DigestSnapshot](opts...),
		Lunar:     cache.New[entity.LunarDigest](opts...),
		Quote:     cache.New[entity.Quote](opts...),
		Image:     cache.New[entity.DailyImage](opts...),
	}
}

// Config controls the aggregation.
type Config struct {
	// Location decides where "today" starts.
	Location *time.Location

	// InterCallSpacing is slept before every call of a sweep.
	InterCallSpacing time.Duration

	// SweepPolicy is the per-category budget inside a sweep.
	SweepPolicy retry.Policy

	// ClientPolicy is the budget for the single-item feeds.
	ClientPolicy retry.Policy
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Location:         time.Local,
		InterCallSpacing: spacing.DefaultInterval,
		SweepPolicy:      retry.SweepPolicy(),
		ClientPolicy:     retry.ClientPolicy(),
	}
}

// Status is the service's self-report.
type Status struct {
	Configured bool       `json:"configured"`
	Day        entity.Day `json:"day"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used to compute today.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSleeper overrides how the sweep waits between calls.
func WithSleeper(sleep retry.Sleeper) Option {
	return func(s *Service) { s.spacing.Sleep = sleep }
}

// Service provides the digest use cases.
type Service struct {
	fetchers Fetchers
	caches   Caches
	config   Config
	spacing  *spacing.Sequential
	now      func() time.Time
	flights  singleflight.Group
}

// NewService creates a Service. Nil caches are created with defaults.
func NewService(fetchers Fetchers, caches Caches, config Config, opts ...Option) *Service {
	if config.Location == nil {
		config.Location = time.Local
	}
	if caches.Horoscope == nil {
		caches.Horoscope = cache.New[entity.DigestSnapshot]()
	}
	if caches.Lunar == nil {
		caches.Lunar = cache.New[entity.LunarDigest]()
	}
	if caches.Quote == nil {
		caches.Quote = cache.New[entity.Quote]()
	}
	if caches.Image == nil {
		caches.Image = cache.New[entity.DailyImage]()
	}

	s := &Service{
		fetchers: fetchers,
		caches:   caches,
		config:   config,
		spacing:  spacing.New(config.InterCallSpacing),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current day in the configured location.
func (s *Service) Today() entity.Day {
	return entity.DayOf(s.now().In(s.config.Location))
}

// Status reports whether upstream calls are possible and which day is served.
func (s *Service) Status() Status {
	return Status{
		Configured: s.fetchers.Configured(),
		Day:        s.Today(),
	}
}

// Horoscopes returns today's snapshot of every category.
//
// A cached snapshot for today is returned without any upstream call.
// Otherwise one sweep runs, shared by all concurrent callers, and its result
// is cached before being returned. The sweep does not stop when the caller
// goes away, so a partial snapshot is never cached. Every caller gets its own
// copy of Items.
func (s *Service) Horoscopes(ctx context.Context) entity.DigestSnapshot {
	day := s.Today()
	logger := logging.FromContext(ctx).With(slog.String("feed", feed.NameHoroscope), slog.String("day", day.String()))

	if !s.fetchers.Configured() {
		return notConfiguredSnapshot(day)
	}

	if e, ok := s.caches.Horoscope.Get(NamespaceHoroscope, day); ok {
		logger.Debug("horoscope cache hit")
		return e.Value.Clone()
	}

	v, _, shared := s.flights.Do(NamespaceHoroscope+":"+day.String(), func() (interface{}, error) {
		if e, ok := s.caches.Horoscope.Get(NamespaceHoroscope, day); ok {
			return e.Value, nil
		}
		logger.Info("horoscope cache miss, starting sweep")
		snap := s.sweep(context.WithoutCancel(ctx), day)
		s.caches.Horoscope.Put(NamespaceHoroscope, day, snap)
		return snap, nil
	})
	if shared {
		logger.Debug("joined in-flight sweep")
	}
	return v.(entity.DigestSnapshot).Clone()
}

// sweep visits every category in table order, one at a time.
func (s *Service) sweep(ctx context.Context, day entity.Day) entity.DigestSnapshot {
	ctx, span := tracing.Start(ctx, "digest.sweep", attribute.String("digest.day", day.String()))
	defer span.End()

	start := time.Now()
	logger := logging.FromContext(ctx)
	items := make(map[string]entity.FeedResult, len(entity.Constellations))

	err := spacing.Each(ctx, s.spacing, entity.Constellations, func(ctx context.Context, _ int, c entity.Constellation) {
		items[c.APIKey] = s.fetchers.Horoscope(ctx, c, day, s.config.SweepPolicy)
	})
	if err != nil {
		logger.Error("sweep interrupted", slog.Any("error", err))
	}

	// Every category gets an entry, even if the sweep was cut short.
	for _, c := range entity.Constellations {
		if _, ok := items[c.APIKey]; !ok {
			items[c.APIKey] = entity.Degrade(entity.ReasonUnavailable, entity.TextFetchFailed, day)
		}
	}

	snap := entity.DigestSnapshot{FetchAttemptDay: day, Items: items}
	degraded := snap.DegradedCount()
	snap.PartialFailure = degraded > 0

	duration := time.Since(start)
	metrics.RecordSweep(duration, snap.PartialFailure)
	span.SetAttributes(attribute.Int("digest.degraded", degraded))

	if snap.PartialFailure {
		logger.Warn("sweep finished with degraded categories",
			slog.String("day", day.String()),
			slog.Int("degraded", degraded),
			slog.Int("total", len(items)),
			slog.Duration("duration", duration))
	} else {
		logger.Info("sweep finished",
			slog.String("day", day.String()),
			slog.Duration("duration", duration))
	}
	return snap
}

func notConfiguredSnapshot(day entity.Day) entity.DigestSnapshot {
	items := make(map[string]entity.FeedResult, len(entity.Constellations))
	for _, c := range entity.Constellations {
		items[c.APIKey] = entity.Degrade(entity.ReasonNotConfigured, entity.TextNotConfigured, day)
	}
	return entity.DigestSnapshot{FetchAttemptDay: day, Items: items, PartialFailure: true}
}

// Lunar returns today's almanac. Only successes are cached.
func (s *Service) Lunar(ctx context.Context) (entity.LunarDigest, error) {
	return cached(ctx, s, s.caches.Lunar, NamespaceLunar, func(ctx context.Context, day entity.Day) (entity.LunarDigest, error) {
		out := s.fetchers.Lunar(ctx, day, s.config.ClientPolicy)
		if out.Result.IsDegraded() {
			return entity.LunarDigest{}, newFeedError(feed.NameLunar, out.Result)
		}
		return out.Digest, nil
	})
}

// Quote returns today's quotation. Only successes are cached.
func (s *Service) Quote(ctx context.Context) (entity.Quote, error) {
	return cached(ctx, s, s.caches.Quote, NamespaceQuote, func(ctx context.Context, day entity.Day) (entity.Quote, error) {
		out, err := s.fetchers.Quote(ctx, day, s.config.ClientPolicy)
		if errors.Is(err, feed.ErrNotConfigured) {
			return entity.Quote{}, &FeedError{
				Feed:    feed.NameQuote,
				Reason:  entity.ReasonNotConfigured,
				Status:  http.StatusInternalServerError,
				Message: "服务器API Key未配置",
				Err:     err,
			}
		}
		if err != nil {
			return entity.Quote{}, err
		}
		if out.Result.IsDegraded() {
			return entity.Quote{}, newFeedError(feed.NameQuote, out.Result)
		}
		return out.Quote, nil
	})
}

// Image returns today's background image. Only successes are cached.
func (s *Service) Image(ctx context.Context) (entity.DailyImage, error) {
	return cached(ctx, s, s.caches.Image, NamespaceImage, func(ctx context.Context, day entity.Day) (entity.DailyImage, error) {
		out := s.fetchers.Image(ctx, day, s.config.ClientPolicy)
		if out.Result.IsDegraded() {
			return entity.DailyImage{}, newFeedError(feed.NameImage, out.Result)
		}
		return out.Image, nil
	})
}

// cached serves namespace from c for today, fetching at most once at a time on a miss.
func cached[V any](ctx context.Context, s *Service, c *cache.TTL[V], namespace string, fetch func(ctx context.Context, day entity.Day) (V, error)) (V, error) {
	day := s.Today()
	if e, ok := c.Get(namespace, day); ok {
		return e.Value, nil
	}

	v, err, _ := s.flights.Do(namespace+":"+day.String(), func() (interface{}, error) {
		if e, ok := c.Get(namespace, day); ok {
			return e.Value, nil
		}
		val, err := fetch(context.WithoutCancel(ctx), day)
		if err != nil {
			return nil, err
		}
		c.Put(namespace, day, val)
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Prewarm fills every cache for today. Feeds are warmed in parallel;
// the horoscope sweep itself stays sequential.
func (s *Service) Prewarm(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.Image(ctx)
		return ignoreFeedError(logger, feed.NameImage, err)
	})

	if s.fetchers.Configured() {
		g.Go(func() error {
			snap := s.Horoscopes(ctx)
			if snap.PartialFailure {
				logger.Warn("prewarm horoscope sweep was partial", slog.Int("degraded", snap.DegradedCount()))
			}
			return nil
		})
		g.Go(func() error {
			_, err := s.Lunar(ctx)
			return ignoreFeedError(logger, feed.NameLunar, err)
		})
		g.Go(func() error {
			_, err := s.Quote(ctx)
			return ignoreFeedError(logger, feed.NameQuote, err)
		})
	} else {
		logger.Warn("prewarm skipped credentialed feeds: not configured")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("prewarm completed",
		slog.String("day", s.Today().String()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// ignoreFeedError logs degradations; they are expected and retried on the next request.
func ignoreFeedError(logger *slog.Logger, name string, err error) error {
	var fe *FeedError
	if errors.As(err, &fe) {
		logger.Warn("prewarm feed degraded",
			slog.String("feed", name),
			slog.String("reason", string(fe.Reason)),
			slog.Int("status", fe.Status))
		return nil
	}
	return err
}
