package market

import (
	"context"
	"strings"
	"time"

	"github.com/remessasegura/backend/internal/collector"
	"github.com/remessasegura/backend/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxPairs caps the pairs accepted in one live-quote request.
const MaxPairs = 20

// DefaultPairs are served when a request names none.
var DefaultPairs = []core.Pair{
	{Base: "USD", Quote: "BRL"},
	{Base: "EUR", Quote: "BRL"},
	{Base: "GBP", Quote: "BRL"},
	{Base: "ARS", Quote: "BRL"},
	{Base: "BTC", Quote: "BRL"},
}

// ParsePairs validates and de-duplicates symbols, keeping first-seen order.
// No symbols yields DefaultPairs.
func ParsePairs(symbols []string) ([]core.Pair, error) {
	if len(symbols) == 0 {
		return DefaultPairs, nil
	}
	if len(symbols) > MaxPairs {
		return nil, core.Validation("at most %d currency pairs per request, got %d", MaxPairs, len(symbols))
	}

	pairs := make([]core.Pair, 0, len(symbols))
	seen := make(map[core.Pair]struct{}, len(symbols))
	for _, sym := range symbols {
		p, ok := core.ParsePair(sym)
		if !ok {
			return nil, core.Validation("invalid currency pair %q", sym)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func pairsKey(pairs []core.Pair) string {
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.String()
	}
	return strings.Join(names, ",")
}

// Quotes returns live quotes for pairs in request order. Results are served
// from cache when fresh.
func (s *Service) Quotes(ctx context.Context, pairs []core.Pair) ([]core.Quote, error) {
	if len(pairs) == 0 {
		pairs = DefaultPairs
	}
	return cached(ctx, s, s.quotes, "quotes", pairsKey(pairs), s.ttl.Quotes,
		func(ctx context.Context) ([]core.Quote, error) {
			return s.fetchQuotes(ctx, pairs)
		})
}

func (s *Service) fetchQuotes(ctx context.Context, pairs []core.Pair) ([]core.Quote, error) {
	var hint time.Duration

	if s.primary != nil {
		res := s.primary.LastQuotes(ctx, pairs)
		s.record(s.primary.Name(), "last_quotes", res.Outcome)

		switch res.Outcome {
		case collector.OutcomeOK:
			return res.Value, nil
		case collector.OutcomeEmpty:
			return []core.Quote{}, nil
		case collector.OutcomeRateLimited:
			s.logger.Warn("primary quote provider rate limited, using secondary",
				zap.String("provider", s.primary.Name()),
				zap.Int("pairs", len(pairs)),
			)
			hint = res.RetryAfter
		default:
			return nil, s.failure(s.primary.Name(), "last_quotes", res.Outcome, res.RetryAfter, res.Err)
		}
	}

	return s.secondaryQuotes(ctx, pairs, hint)
}

// secondaryQuotes asks the secondary once per pair. Any successes are
// returned in request order; none at all is an unavailable error.
func (s *Service) secondaryQuotes(ctx context.Context, pairs []core.Pair, hint time.Duration) ([]core.Quote, error) {
	if s.secondary == nil {
		return nil, core.Unavailable(hint, nil)
	}
	s.metrics.RecordFallback("secondary_quotes")

	results := make([]collector.Result[core.Quote], len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, p := range pairs {
		g.Go(func() error {
			results[i] = s.secondary.CurrencyQuote(gctx, p)
			s.record(s.secondary.Name(), "currency_quote", results[i].Outcome)
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]core.Quote, 0, len(pairs))
	for i, res := range results {
		if res.OK() {
			quotes = append(quotes, res.Value)
			continue
		}
		if res.RetryAfter > hint {
			hint = res.RetryAfter
		}
		s.logger.Debug("secondary quote missing",
			zap.String("pair", pairs[i].String()),
			zap.Stringer("outcome", res.Outcome),
		)
	}

	if len(quotes) == 0 {
		return nil, core.Unavailable(hint, nil)
	}
	if len(quotes) < len(pairs) {
		s.logger.Info("serving partial quote set",
			zap.Int("requested", len(pairs)),
			zap.Int("served", len(quotes)),
		)
	}
	return quotes, nil
}
