package market

import (
	"context"
	"strings"

	"github.com/remessasegura/backend/internal/collector"
	"github.com/remessasegura/backend/internal/collector/brapi"
	"github.com/remessasegura/backend/internal/core"
)

// MaxTickers caps the tickers accepted in one stock-quote request.
const MaxTickers = 20

// MaxListLimit caps the page size of a stock listing.
const MaxListLimit = 100

// ParseTickers validates, upper-cases and de-duplicates tickers.
func ParseTickers(tickers []string) ([]string, error) {
	out := make([]string, 0, len(tickers))
	seen := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if err := brapi.ValidateTicker(t); err != nil {
			return nil, core.Validation("%s", err.Error())
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, core.Validation("at least one ticker is required")
	}
	if len(out) > MaxTickers {
		return nil, core.Validation("at most %d tickers per request, got %d", MaxTickers, len(out))
	}
	return out, nil
}

// ValidateListQuery normalizes q in place.
func ValidateListQuery(q *core.StockListQuery) error {
	q.SortOrder = strings.ToLower(strings.TrimSpace(q.SortOrder))
	switch q.SortOrder {
	case "", "asc", "desc":
	default:
		return core.Validation("sortOrder must be asc or desc")
	}
	if q.Limit < 0 || q.Limit > MaxListLimit {
		return core.Validation("limit must be between 1 and %d", MaxListLimit)
	}
	if q.Page < 0 {
		return core.Validation("page must be positive")
	}
	q.Search = strings.TrimSpace(q.Search)
	return nil
}

// StockQuotes returns quotes for tickers.
func (s *Service) StockQuotes(ctx context.Context, tickers []string) ([]core.Quote, error) {
	if s.secondary == nil {
		return nil, core.Unavailable(0, nil)
	}
	return cached(ctx, s, s.stocks, "stocks", strings.Join(tickers, ","), s.ttl.Stocks,
		func(ctx context.Context) ([]core.Quote, error) {
			res := s.secondary.StockQuotes(ctx, tickers)
			s.record(s.secondary.Name(), "stock_quotes", res.Outcome)
			if res.Outcome == collector.OutcomeOK {
				return res.Value, nil
			}
			return nil, s.failure(s.secondary.Name(), "stock_quotes", res.Outcome, res.RetryAfter, res.Err)
		})
}

// StockList returns one page of the stock screener.
func (s *Service) StockList(ctx context.Context, q core.StockListQuery) (core.StockPage, error) {
	if s.secondary == nil {
		return core.StockPage{}, core.Unavailable(0, nil)
	}
	return cached(ctx, s, s.lists, "stock_list", q.Encode(), s.ttl.Stocks,
		func(ctx context.Context) (core.StockPage, error) {
			res := s.secondary.List(ctx, q)
			s.record(s.secondary.Name(), "stock_list", res.Outcome)
			switch res.Outcome {
			case collector.OutcomeOK:
				return res.Value, nil
			case collector.OutcomeEmpty:
				return core.StockPage{Stocks: []core.StockListing{}, CurrentPage: max(q.Page, 1)}, nil
			}
			return core.StockPage{}, s.failure(s.secondary.Name(), "stock_list", res.Outcome, res.RetryAfter, res.Err)
		})
}
