// Package brapi is the client for the brapi.dev market data service. It
// serves stock quotes, listings and ticker history, and is the secondary
// source for currency quotes.
package brapi

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/remessasegura/backend/internal/collector"
	"github.com/remessasegura/backend/internal/core"
)

const (
	// Name identifies the provider in logs, metrics and cache keys.
	Name = "brapi"

	defaultBaseURL = "https://brapi.dev/api"
	defaultTimeout = 30 * time.Second
)

// validTicker matches B3 tickers (PETR4, ITUB4F), indexes (^BVSP) and
// suffixed symbols (AAPL.SA).
var validTicker = regexp.MustCompile(`^\^?[A-Za-z0-9]{1,12}(\.[A-Za-z]{1,4})?$`)

// validParam matches range and interval values such as 1d, 5m, 1mo, max.
var validParam = regexp.MustCompile(`^[0-9a-z]{1,6}$`)

// ValidateTicker checks if a ticker has valid format.
func ValidateTicker(ticker string) error {
	if ticker == "" {
		return fmt.Errorf("ticker cannot be empty")
	}
	if len(ticker) > 20 {
		return fmt.Errorf("ticker too long: %s", ticker)
	}
	if !validTicker.MatchString(ticker) {
		return fmt.Errorf("invalid ticker format: %s", ticker)
	}
	return nil
}

// ValidateParam checks a range or interval value.
func ValidateParam(v string) error {
	if !validParam.MatchString(v) {
		return fmt.Errorf("invalid range/interval: %q", v)
	}
	return nil
}

// Brapi implements the brapi.dev client.
type Brapi struct {
	client  *collector.Client
	baseURL string
}

// New creates a client from cfg. The API key, when present, is sent as a
// bearer token.
func New(cfg collector.Config) *Brapi {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := collector.NewClient(timeout)
	if cfg.APIKey != "" {
		client.Headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}
	return &Brapi{client: client, baseURL: base}
}

func (b *Brapi) Name() string { return Name }

// StockQuotes fetches current quotes for up to 20 tickers.
func (b *Brapi) StockQuotes(ctx context.Context, tickers []string) collector.Result[[]core.Quote] {
	escaped := make([]string, len(tickers))
	for i, t := range tickers {
		escaped[i] = url.PathEscape(t)
	}
	u := fmt.Sprintf("%s/quote/%s", b.baseURL, strings.Join(escaped, ","))

	resp := b.client.Get(ctx, u)
	if resp.Outcome != collector.OutcomeOK {
		return collector.Failed[[]core.Quote](resp)
	}
	quotes, err := decodeQuotes(resp.Body)
	if err != nil {
		return collector.SchemaError[[]core.Quote](err)
	}
	if len(quotes) == 0 {
		return collector.Empty[[]core.Quote]()
	}
	return collector.Success(quotes)
}

// History fetches the close series of ticker for one range/interval pair.
// An empty historicalDataPrice array is reported as OutcomeEmpty.
func (b *Brapi) History(ctx context.Context, ticker, rng, interval string) collector.Result[core.History] {
	q := url.Values{}
	q.Set("range", rng)
	q.Set("interval", interval)
	u := fmt.Sprintf("%s/quote/%s?%s", b.baseURL, url.PathEscape(ticker), q.Encode())

	resp := b.client.Get(ctx, u)
	if resp.Outcome != collector.OutcomeOK {
		return collector.Failed[core.History](resp)
	}
	h, err := decodeHistory(resp.Body)
	if err != nil {
		return collector.SchemaError[core.History](err)
	}
	if len(h.Points) == 0 {
		return collector.Empty[core.History]()
	}
	h.Range, h.Interval = rng, interval
	return collector.Success(h)
}

// CurrencyQuote fetches one currency pair.
func (b *Brapi) CurrencyQuote(ctx context.Context, pair core.Pair) collector.Result[core.Quote] {
	q := url.Values{}
	q.Set("currency", pair.String())
	u := fmt.Sprintf("%s/v2/currency?%s", b.baseURL, q.Encode())

	resp := b.client.Get(ctx, u)
	if resp.Outcome != collector.OutcomeOK {
		return collector.Failed[core.Quote](resp)
	}
	quote, found, err := decodeCurrency(resp.Body, pair)
	if err != nil {
		return collector.SchemaError[core.Quote](err)
	}
	if !found {
		return collector.Empty[core.Quote]()
	}
	return collector.Success(quote)
}

// List fetches one page of the stock listing.
func (b *Brapi) List(ctx context.Context, p core.StockListQuery) collector.Result[core.StockPage] {
	u := fmt.Sprintf("%s/quote/list", b.baseURL)
	if qs := p.Encode(); qs != "" {
		u += "?" + qs
	}

	resp := b.client.Get(ctx, u)
	if resp.Outcome != collector.OutcomeOK {
		return collector.Failed[core.StockPage](resp)
	}
	page, err := decodeList(resp.Body)
	if err != nil {
		return collector.SchemaError[core.StockPage](err)
	}
	return collector.Success(page)
}
