package market

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/remessasegura/backend/internal/collector"
	"github.com/remessasegura/backend/internal/core"
	"github.com/shopspring/decimal"
)

type fakePrimary struct {
	lastQuotes func(pairs []core.Pair) collector.Result[[]core.Quote]
	daily      func(pair core.Pair, days int) collector.Result[[]core.HistoryPoint]
	lastDays   func(pair core.Pair, days int) collector.Result[[]core.HistoryPoint]

	lastQuotesCalls atomic.Int32
	dailyCalls      atomic.Int32
	lastDaysCalls   atomic.Int32
	lastDaysArg     atomic.Int32
}

func (f *fakePrimary) Name() string { return "primary" }

func (f *fakePrimary) LastQuotes(_ context.Context, pairs []core.Pair) collector.Result[[]core.Quote] {
	f.lastQuotesCalls.Add(1)
	return f.lastQuotes(pairs)
}

func (f *fakePrimary) Daily(_ context.Context, pair core.Pair, days int) collector.Result[[]core.HistoryPoint] {
	f.dailyCalls.Add(1)
	return f.daily(pair, days)
}

func (f *fakePrimary) LastDays(_ context.Context, pair core.Pair, days int) collector.Result[[]core.HistoryPoint] {
	f.lastDaysCalls.Add(1)
	f.lastDaysArg.Store(int32(days))
	return f.lastDays(pair, days)
}

type historyCall struct{ rng, interval string }

type fakeSecondary struct {
	currencyQuote func(pair core.Pair) collector.Result[core.Quote]
	history       func(ticker, rng, interval string) collector.Result[core.History]
	stockQuotes   func(tickers []string) collector.Result[[]core.Quote]
	list          func(q core.StockListQuery) collector.Result[core.StockPage]

	mu           sync.Mutex
	quoteCalls   map[core.Pair]int
	historyCalls []historyCall
	stockCalls   int
}

func (f *fakeSecondary) Name() string { return "secondary" }

func (f *fakeSecondary) CurrencyQuote(_ context.Context, pair core.Pair) collector.Result[core.Quote] {
	f.mu.Lock()
	if f.quoteCalls == nil {
		f.quoteCalls = make(map[core.Pair]int)
	}
	f.quoteCalls[pair]++
	f.mu.Unlock()
	return f.currencyQuote(pair)
}

func (f *fakeSecondary) History(_ context.Context, ticker, rng, interval string) collector.Result[core.History] {
	f.mu.Lock()
	f.historyCalls = append(f.historyCalls, historyCall{rng, interval})
	f.mu.Unlock()
	return f.history(ticker, rng, interval)
}

func (f *fakeSecondary) StockQuotes(_ context.Context, tickers []string) collector.Result[[]core.Quote] {
	f.mu.Lock()
	f.stockCalls++
	f.mu.Unlock()
	return f.stockQuotes(tickers)
}

func (f *fakeSecondary) List(_ context.Context, q core.StockListQuery) collector.Result[core.StockPage] {
	return f.list(q)
}

func (f *fakeSecondary) quoteCallsFor(p core.Pair) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quoteCalls[p]
}

func (f *fakeSecondary) totalQuoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.quoteCalls {
		n += c
	}
	return n
}

type fakeMetrics struct {
	misses    atomic.Int32
	fallbacks sync.Map
}

func (m *fakeMetrics) RecordUpstream(string, string, string) {}

func (m *fakeMetrics) RecordCacheLookup(_ string, hit bool) {
	if !hit {
		m.misses.Add(1)
	}
}

func (m *fakeMetrics) RecordFallback(kind string) {
	v, _ := m.fallbacks.LoadOrStore(kind, new(atomic.Int32))
	v.(*atomic.Int32).Add(1)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func quoteFor(p core.Pair, price string) core.Quote {
	return core.Quote{
		Symbol: p.Symbol(),
		Name:   p.String(),
		Price:  decimal.RequireFromString(price),
		Source: "test",
	}
}

func quotesFor(pairs []core.Pair, price string) []core.Quote {
	out := make([]core.Quote, len(pairs))
	for i, p := range pairs {
		out[i] = quoteFor(p, price)
	}
	return out
}

func failed[T any](o collector.Outcome, retryAfter time.Duration) collector.Result[T] {
	return collector.Result[T]{Outcome: o, RetryAfter: retryAfter}
}

var (
	usdBRL = core.Pair{Base: "USD", Quote: "BRL"}
	eurBRL = core.Pair{Base: "EUR", Quote: "BRL"}
	usdEUR = core.Pair{Base: "USD", Quote: "EUR"}
)
