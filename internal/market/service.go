// Package market aggregates currency and stock data from the upstream
// providers. It owns the quote caches and every fallback decision: which
// provider to try next, when to stop and what to report.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/remessasegura/backend/internal/cache"
	"github.com/remessasegura/backend/internal/collector"
	"github.com/remessasegura/backend/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FXProvider is the primary currency source.
type FXProvider interface {
	Name() string
	LastQuotes(ctx context.Context, pairs []core.Pair) collector.Result[[]core.Quote]
	Daily(ctx context.Context, pair core.Pair, days int) collector.Result[[]core.HistoryPoint]
	LastDays(ctx context.Context, pair core.Pair, days int) collector.Result[[]core.HistoryPoint]
}

// SecondaryProvider serves stocks and ticker history, and currency quotes
// when the primary is rate limited.
type SecondaryProvider interface {
	Name() string
	CurrencyQuote(ctx context.Context, pair core.Pair) collector.Result[core.Quote]
	History(ctx context.Context, ticker, rng, interval string) collector.Result[core.History]
	StockQuotes(ctx context.Context, tickers []string) collector.Result[[]core.Quote]
	List(ctx context.Context, q core.StockListQuery) collector.Result[core.StockPage]
}

// Metrics receives orchestration events.
type Metrics interface {
	RecordUpstream(provider, operation, outcome string)
	RecordCacheLookup(cache string, hit bool)
	RecordFallback(kind string)
}

type nopMetrics struct{}

func (nopMetrics) RecordUpstream(string, string, string) {}
func (nopMetrics) RecordCacheLookup(string, bool)        {}
func (nopMetrics) RecordFallback(string)                 {}

// TTLs sets how long each kind of payload is cached.
type TTLs struct {
	Quotes  time.Duration
	History time.Duration
	Rates   time.Duration
	Stocks  time.Duration
}

// DefaultTTLs returns the production cache lifetimes.
func DefaultTTLs() TTLs {
	return TTLs{
		Quotes:  5 * time.Minute,
		History: 5 * time.Minute,
		Rates:   5 * time.Minute,
		Stocks:  time.Minute,
	}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTTLs overrides the cache lifetimes.
func WithTTLs(t TTLs) Option {
	return func(s *Service) { s.ttl = t }
}

// WithClock overrides the time source of every cache.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithFanout bounds concurrent per-symbol secondary calls.
func WithFanout(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanout = n
		}
	}
}

// Service is safe for concurrent use.
type Service struct {
	primary   FXProvider
	secondary SecondaryProvider

	quotes  *cache.Cache[[]core.Quote]
	history *cache.Cache[core.History]
	rates   *cache.Cache[Rate]
	stocks  *cache.Cache[[]core.Quote]
	lists   *cache.Cache[core.StockPage]
	flight  singleflight.Group

	ttl     TTLs
	fanout  int
	now     func() time.Time
	metrics Metrics
	logger  *zap.Logger
}

// New creates a Service. Either provider may be nil when disabled.
func New(primary FXProvider, secondary SecondaryProvider, opts ...Option) *Service {
	s := &Service{
		primary:   primary,
		secondary: secondary,
		ttl:       DefaultTTLs(),
		fanout:    5,
		now:       time.Now,
		metrics:   nopMetrics{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	clock := cache.WithClock(s.now)
	s.quotes = cache.New[[]core.Quote](clock)
	s.history = cache.New[core.History](clock)
	s.rates = cache.New[Rate](clock)
	s.stocks = cache.New[[]core.Quote](clock)
	s.lists = cache.New[core.StockPage](clock)
	return s
}

// cached returns the value for key from c, or runs fetch once per key across
// concurrent callers and stores a successful result for ttl.
func cached[V any](ctx context.Context, s *Service, c *cache.Cache[V], name, key string,
	ttl time.Duration, fetch func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		s.metrics.RecordCacheLookup(name, true)
		return v, nil
	}
	s.metrics.RecordCacheLookup(name, false)

	// The flight outlives any single caller; provider timeouts bound it.
	flightCtx := context.WithoutCancel(ctx)
	out, err, _ := s.flight.Do(name+"|"+key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fetch(flightCtx)
		if err != nil {
			return v, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return out.(V), nil
}

func (s *Service) record(provider, operation string, o collector.Outcome) {
	s.metrics.RecordUpstream(provider, operation, o.String())
}

// failure maps a terminal provider outcome to a client-facing error.
func (s *Service) failure(provider, operation string, o collector.Outcome, retryAfter time.Duration, cause error) error {
	if cause != nil {
		cause = fmt.Errorf("%s %s: %s: %w", provider, operation, o, cause)
	} else {
		cause = fmt.Errorf("%s %s: %s", provider, operation, o)
	}
	switch o {
	case collector.OutcomeSchema:
		s.logger.Error("upstream schema mismatch",
			zap.String("provider", provider),
			zap.String("operation", operation),
			zap.Error(cause),
		)
		return core.WrapError(core.ErrUpstreamSchema, cause)
	case collector.OutcomeUnauthorized:
		s.logger.Error("upstream rejected credentials",
			zap.String("provider", provider),
			zap.String("operation", operation),
		)
		return core.WrapError(core.ErrUpstreamUnauthorized, cause)
	case collector.OutcomeRateLimited:
		return core.Unavailable(retryAfter, cause)
	case collector.OutcomeRejected, collector.OutcomeEmpty:
		return core.WrapError(core.ErrNotFound, cause)
	default:
		s.logger.Warn("upstream request failed",
			zap.String("provider", provider),
			zap.String("operation", operation),
			zap.Error(cause),
		)
		return core.WrapError(core.ErrUpstreamFailed, cause)
	}
}
