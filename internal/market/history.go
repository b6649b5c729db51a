package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/remessasegura/backend/internal/collector"
	"github.com/remessasegura/backend/internal/collector/awesomeapi"
	"github.com/remessasegura/backend/internal/collector/brapi"
	"github.com/remessasegura/backend/internal/core"
	"go.uber.org/zap"
)

// DefaultHistoryDays is used when neither days nor a range is given.
const DefaultHistoryDays = 30

// HistoryRequest asks for a ticker's close series. Range and Interval are
// tried first when both are set.
type HistoryRequest struct {
	Symbol   string
	Range    string
	Interval string
	// Days sizes the currency last-resort window; zero derives it from Range.
	Days int
}

// Validate normalizes the request in place.
func (r *HistoryRequest) Validate() error {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	if err := brapi.ValidateTicker(r.Symbol); err != nil {
		return core.Validation("%s", err.Error())
	}
	r.Range = strings.ToLower(strings.TrimSpace(r.Range))
	r.Interval = strings.ToLower(strings.TrimSpace(r.Interval))
	for _, v := range []string{r.Range, r.Interval} {
		if v == "" {
			continue
		}
		if err := brapi.ValidateParam(v); err != nil {
			return core.Validation("%s", err.Error())
		}
	}
	if r.Days < 0 || r.Days > awesomeapi.MaxDays {
		return core.Validation("days must be between 1 and %d", awesomeapi.MaxDays)
	}
	return nil
}

// Attempt is one provider call with a range/interval pair.
type Attempt struct {
	Provider string
	Range    string
	Interval string
}

// Key identifies an attempt within one run.
func (a Attempt) Key() string {
	return a.Provider + "|" + a.Range + "|" + a.Interval
}

// fallbackWindows follow the requested window, narrowest first.
var fallbackWindows = []struct{ rng, interval string }{
	{"1d", "5m"},
	{"1mo", "1d"},
	{"1y", "1wk"},
}

// Plan returns the ordered, de-duplicated attempts for req.
func Plan(req HistoryRequest) []Attempt {
	seen := make(map[string]struct{}, len(fallbackWindows)+1)
	attempts := make([]Attempt, 0, len(fallbackWindows)+1)
	add := func(a Attempt) {
		if _, dup := seen[a.Key()]; dup {
			return
		}
		seen[a.Key()] = struct{}{}
		attempts = append(attempts, a)
	}

	if req.Range != "" && req.Interval != "" {
		add(Attempt{Provider: brapi.Name, Range: req.Range, Interval: req.Interval})
	}
	for _, w := range fallbackWindows {
		add(Attempt{Provider: brapi.Name, Range: w.rng, Interval: w.interval})
	}
	return attempts
}

// daysForRange maps a range to a day count for the date-range endpoint.
func daysForRange(rng string, now time.Time) int {
	switch rng {
	case "1d":
		return 1
	case "5d":
		return 5
	case "1mo":
		return 30
	case "3mo":
		return 90
	case "6mo":
		return 180
	case "1y", "2y", "5y", "10y", "max":
		return awesomeapi.MaxDays
	case "ytd":
		return now.YearDay()
	}
	return DefaultHistoryDays
}

// History walks the attempt plan until one yields points. A currency pair
// symbol gets a final try against the primary's date-range endpoint.
func (s *Service) History(ctx context.Context, req HistoryRequest) (core.History, error) {
	key := strings.Join([]string{"history", req.Symbol, req.Range, req.Interval, strconv.Itoa(req.Days)}, "|")
	return cached(ctx, s, s.history, "history", key, s.ttl.History,
		func(ctx context.Context) (core.History, error) {
			return s.runHistory(ctx, req)
		})
}

func (s *Service) runHistory(ctx context.Context, req HistoryRequest) (core.History, error) {
	var (
		attempted   int
		allRejected = true
		hint        time.Duration
		lastErr     error
	)

	note := func(res collector.Outcome, retryAfter time.Duration, err error) {
		attempted++
		if res != collector.OutcomeRejected {
			allRejected = false
		}
		if retryAfter > hint {
			hint = retryAfter
		}
		if err != nil {
			lastErr = err
		}
	}

	if s.secondary != nil {
		for i, a := range Plan(req) {
			if i > 0 {
				s.metrics.RecordFallback("history_candidate")
			}
			res := s.secondary.History(ctx, req.Symbol, a.Range, a.Interval)
			s.record(s.secondary.Name(), "history", res.Outcome)

			s.logger.Debug("history attempt",
				zap.String("symbol", req.Symbol),
				zap.String("attempt", a.Key()),
				zap.Stringer("outcome", res.Outcome),
			)

			switch res.Outcome {
			case collector.OutcomeOK:
				h := res.Value
				if h.Symbol == "" {
					h.Symbol = req.Symbol
				}
				return h, nil
			case collector.OutcomeUnauthorized, collector.OutcomeSchema:
				return core.History{}, s.failure(s.secondary.Name(), "history", res.Outcome, 0, res.Err)
			}
			note(res.Outcome, res.RetryAfter, res.Err)
		}
	}

	if pair, ok := core.ParsePair(req.Symbol); ok && s.primary != nil {
		s.metrics.RecordFallback("history_last_resort")
		days := req.Days
		if days == 0 {
			days = daysForRange(req.Range, s.now())
		}
		res := s.primary.LastDays(ctx, pair, days)
		s.record(s.primary.Name(), "daily_range", res.Outcome)

		switch res.Outcome {
		case collector.OutcomeOK:
			return core.History{
				Symbol: pair.Symbol(),
				Name:   pair.String(),
				Source: s.primary.Name(),
				Points: res.Value,
			}, nil
		case collector.OutcomeUnauthorized, collector.OutcomeSchema:
			return core.History{}, s.failure(s.primary.Name(), "daily_range", res.Outcome, 0, res.Err)
		}
		note(res.Outcome, res.RetryAfter, res.Err)
	}

	if attempted > 0 && allRejected {
		return core.History{}, core.WrapError(core.NotFound("no history for %s", req.Symbol), lastErr)
	}
	cause := fmt.Errorf("history for %s: %d attempts exhausted", req.Symbol, attempted)
	if lastErr != nil {
		cause = fmt.Errorf("%w: %w", cause, lastErr)
	}
	return core.History{}, core.Unavailable(hint, cause)
}

// CurrencyHistory returns the last days daily closes of pair, oldest first.
func (s *Service) CurrencyHistory(ctx context.Context, pair core.Pair, days int) (core.History, error) {
	if days == 0 {
		days = DefaultHistoryDays
	}
	if days < 1 || days > awesomeapi.MaxDays {
		return core.History{}, core.Validation("days must be between 1 and %d", awesomeapi.MaxDays)
	}
	if s.primary == nil {
		return core.History{}, core.Unavailable(0, fmt.Errorf("currency history provider disabled"))
	}

	key := pair.String() + "|" + strconv.Itoa(days)
	return cached(ctx, s, s.history, "currency_history", key, s.ttl.History,
		func(ctx context.Context) (core.History, error) {
			res := s.primary.Daily(ctx, pair, days)
			s.record(s.primary.Name(), "daily", res.Outcome)

			switch res.Outcome {
			case collector.OutcomeOK, collector.OutcomeEmpty:
				points := res.Value
				if points == nil {
					points = []core.HistoryPoint{}
				}
				return core.History{
					Symbol: pair.Symbol(),
					Name:   pair.String(),
					Source: s.primary.Name(),
					Points: points,
				}, nil
			}
			return core.History{}, s.failure(s.primary.Name(), "daily", res.Outcome, res.RetryAfter, res.Err)
		})
}
