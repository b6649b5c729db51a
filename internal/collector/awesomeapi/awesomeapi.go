// Package awesomeapi is the client for the AwesomeAPI currency service, the
// primary source for live currency quotes and daily currency history.
package awesomeapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/remessasegura/backend/internal/collector"
	"github.com/remessasegura/backend/internal/core"
)

const (
	// Name identifies the provider in logs, metrics and cache keys.
	Name = "awesomeapi"

	defaultBaseURL = "https://economia.awesomeapi.com.br"
	defaultTimeout = 15 * time.Second

	// MaxDays is the largest daily window the service serves in one call.
	MaxDays = 360
)

// AwesomeAPI implements the currency quote client.
type AwesomeAPI struct {
	client  *collector.Client
	baseURL string
	now     func() time.Time
}

// Option configures the client.
type Option func(*AwesomeAPI)

// WithClock overrides the time source used for date-range requests.
func WithClock(now func() time.Time) Option {
	return func(a *AwesomeAPI) { a.now = now }
}

// New creates a client from cfg. Empty fields fall back to defaults.
func New(cfg collector.Config, opts ...Option) *AwesomeAPI {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	a := &AwesomeAPI{
		client:  collector.NewClient(timeout),
		baseURL: base,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AwesomeAPI) Name() string { return Name }

// LastQuotes fetches the latest quote for each pair in one request. Quotes
// come back in the order of pairs; pairs the service omits are skipped.
func (a *AwesomeAPI) LastQuotes(ctx context.Context, pairs []core.Pair) collector.Result[[]core.Quote] {
	if len(pairs) == 0 {
		return collector.Success([]core.Quote{})
	}
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.String()
	}
	u := fmt.Sprintf("%s/json/last/%s", a.baseURL, strings.Join(names, ","))

	resp := a.client.Get(ctx, u)
	if resp.Outcome != collector.OutcomeOK {
		return collector.Failed[[]core.Quote](resp)
	}
	quotes, err := decodeLast(resp.Body, pairs)
	if err != nil {
		return collector.SchemaError[[]core.Quote](err)
	}
	if len(quotes) == 0 {
		return collector.Empty[[]core.Quote]()
	}
	return collector.Success(quotes)
}

// Daily fetches the last days daily closes for pair, oldest first.
func (a *AwesomeAPI) Daily(ctx context.Context, pair core.Pair, days int) collector.Result[[]core.HistoryPoint] {
	if days < 1 || days > MaxDays {
		return collector.Result[[]core.HistoryPoint]{
			Outcome: collector.OutcomeRejected,
			Err:     fmt.Errorf("days must be between 1 and %d, got %d", MaxDays, days),
		}
	}
	u := fmt.Sprintf("%s/json/daily/%s/%d", a.baseURL, pair.String(), days)
	return a.fetchDaily(ctx, u)
}

// DailyRange fetches daily closes between start and end inclusive.
func (a *AwesomeAPI) DailyRange(ctx context.Context, pair core.Pair, start, end time.Time) collector.Result[[]core.HistoryPoint] {
	q := url.Values{}
	q.Set("start_date", start.Format("20060102"))
	q.Set("end_date", end.Format("20060102"))
	// The range endpoint defaults to a single row without an explicit count.
	days := int(end.Sub(start).Hours()/24) + 1
	if days > MaxDays {
		days = MaxDays
	}
	u := fmt.Sprintf("%s/json/daily/%s/%s?%s", a.baseURL, pair.String(), strconv.Itoa(days), q.Encode())
	return a.fetchDaily(ctx, u)
}

// LastDays is DailyRange ending today.
func (a *AwesomeAPI) LastDays(ctx context.Context, pair core.Pair, days int) collector.Result[[]core.HistoryPoint] {
	end := a.now().UTC()
	start := end.AddDate(0, 0, -days)
	return a.DailyRange(ctx, pair, start, end)
}

func (a *AwesomeAPI) fetchDaily(ctx context.Context, u string) collector.Result[[]core.HistoryPoint] {
	resp := a.client.Get(ctx, u)
	if resp.Outcome != collector.OutcomeOK {
		return collector.Failed[[]core.HistoryPoint](resp)
	}
	points, err := decodeDaily(resp.Body)
	if err != nil {
		return collector.SchemaError[[]core.HistoryPoint](err)
	}
	if len(points) == 0 {
		return collector.Empty[[]core.HistoryPoint]()
	}
	return collector.Success(points)
}
