package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/remessasegura/backend/internal/collector"
	"github.com/remessasegura/backend/internal/core"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// crossCurrency is the pivot for rates neither provider quotes directly.
const crossCurrency = "BRL"

// crossRatePlaces is the precision of a rate derived through crossCurrency.
const crossRatePlaces = 8

// ConvertRequest is a validated conversion request.
type ConvertRequest struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// ParseConvert validates raw query values.
func ParseConvert(from, to, amount string) (ConvertRequest, error) {
	req := ConvertRequest{
		From: strings.ToUpper(strings.TrimSpace(from)),
		To:   strings.ToUpper(strings.TrimSpace(to)),
	}
	if !core.IsCurrencyCode(req.From) {
		return ConvertRequest{}, core.Validation("invalid source currency %q", from)
	}
	if !core.IsCurrencyCode(req.To) {
		return ConvertRequest{}, core.Validation("invalid target currency %q", to)
	}
	amt, err := collector.ParseDecimal(amount)
	if err != nil {
		return ConvertRequest{}, core.Validation("invalid amount %q", amount)
	}
	if amt.IsNegative() {
		return ConvertRequest{}, core.Validation("amount must not be negative")
	}
	req.Amount = amt
	return req, nil
}

// Rate is a conversion rate and where it came from.
type Rate struct {
	Value  decimal.Decimal
	Source string
}

// Conversion is the result of Convert.
type Conversion struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	Converted decimal.Decimal `json:"converted"`
	Source    string          `json:"source"`
}

// Convert converts req.Amount at the current rate, rounded half-even to
// two places.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (Conversion, error) {
	rate, err := s.Rate(ctx, req.From, req.To)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{
		From:      req.From,
		To:        req.To,
		Amount:    req.Amount,
		Rate:      rate.Value,
		Converted: req.Amount.Mul(rate.Value).RoundBank(2),
		Source:    rate.Source,
	}, nil
}

// Rate returns how many units of to one unit of from buys.
func (s *Service) Rate(ctx context.Context, from, to string) (Rate, error) {
	if from == to {
		return Rate{Value: decimal.NewFromInt(1), Source: "identity"}, nil
	}
	pair := core.Pair{Base: from, Quote: to}
	return cached(ctx, s, s.rates, "rate", pair.String(), s.ttl.Rates,
		func(ctx context.Context) (Rate, error) {
			return s.fetchRate(ctx, pair)
		})
}

func (s *Service) fetchRate(ctx context.Context, pair core.Pair) (Rate, error) {
	var (
		hint    time.Duration
		lastErr error
	)

	if s.primary != nil {
		res := s.primary.LastQuotes(ctx, []core.Pair{pair})
		s.record(s.primary.Name(), "rate", res.Outcome)

		switch res.Outcome {
		case collector.OutcomeOK:
			for _, q := range res.Value {
				if q.Symbol == pair.Symbol() {
					return Rate{Value: q.Price, Source: s.primary.Name()}, nil
				}
			}
		case collector.OutcomeSchema, collector.OutcomeUnauthorized:
			return Rate{}, s.failure(s.primary.Name(), "rate", res.Outcome, 0, res.Err)
		default:
			hint = res.RetryAfter
			lastErr = res.Err
		}
	}

	if s.secondary == nil {
		return Rate{}, core.Unavailable(hint, lastErr)
	}
	s.metrics.RecordFallback("secondary_rate")

	res := s.secondary.CurrencyQuote(ctx, pair)
	s.record(s.secondary.Name(), "currency_quote", res.Outcome)
	switch res.Outcome {
	case collector.OutcomeOK:
		return Rate{Value: res.Value.Price, Source: s.secondary.Name()}, nil
	case collector.OutcomeSchema, collector.OutcomeUnauthorized:
		return Rate{}, s.failure(s.secondary.Name(), "currency_quote", res.Outcome, 0, res.Err)
	}
	hint = max(hint, res.RetryAfter)
	if res.Err != nil {
		lastErr = res.Err
	}

	if pair.Base == crossCurrency || pair.Quote == crossCurrency {
		return Rate{}, core.Unavailable(hint, fmt.Errorf("rate %s: %w", pair, errOr(lastErr, res.Outcome)))
	}
	return s.crossRate(ctx, pair, hint)
}

// crossRate derives FROM-TO as FROM-BRL / TO-BRL.
func (s *Service) crossRate(ctx context.Context, pair core.Pair, hint time.Duration) (Rate, error) {
	s.metrics.RecordFallback("cross_rate")

	legs := [2]core.Pair{
		{Base: pair.Base, Quote: crossCurrency},
		{Base: pair.Quote, Quote: crossCurrency},
	}
	var values [2]decimal.Decimal
	for i, leg := range legs {
		res := s.secondary.CurrencyQuote(ctx, leg)
		s.record(s.secondary.Name(), "currency_quote", res.Outcome)
		switch res.Outcome {
		case collector.OutcomeOK:
			values[i] = res.Value.Price
			continue
		case collector.OutcomeSchema, collector.OutcomeUnauthorized:
			return Rate{}, s.failure(s.secondary.Name(), "currency_quote", res.Outcome, 0, res.Err)
		}
		return Rate{}, core.Unavailable(max(hint, res.RetryAfter), fmt.Errorf("cross rate leg %s: %w", leg, errOr(res.Err, res.Outcome)))
	}

	if values[1].IsZero() {
		return Rate{}, core.Unavailable(hint, fmt.Errorf("cross rate leg %s is zero", legs[1]))
	}
	s.logger.Debug("derived cross rate",
		zap.String("pair", pair.String()),
		zap.String("via", crossCurrency),
	)
	return Rate{
		Value:  values[0].DivRound(values[1], crossRatePlaces),
		Source: s.secondary.Name(),
	}, nil
}

func errOr(err error, o collector.Outcome) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("%s", o)
}
