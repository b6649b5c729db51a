package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	quotes      func([]core.Pair) ([]core.Quote, error)
	history     func(market.HistoryRequest) (core.History, error)
	daily       func(core.Pair, int) (core.History, error)
	convert     func(market.ConvertRequest) (market.Conversion, error)
	stockQuotes func([]string) ([]core.Quote, error)
	stockList   func(core.StockListQuery) (core.StockPage, error)
}

func (f *fakeMarket) Quotes(_ context.Context, pairs []core.Pair) ([]core.Quote, error) {
	return f.quotes(pairs)
}

func (f *fakeMarket) CurrencyHistory(_ context.Context, pair core.Pair, days int) (core.History, error) {
	return f.daily(pair, days)
}

func (f *fakeMarket) Convert(_ context.Context, req market.ConvertRequest) (market.Conversion, error) {
	return f.convert(req)
}

func (f *fakeMarket) History(_ context.Context, req market.HistoryRequest) (core.History, error) {
	return f.history(req)
}

func (f *fakeMarket) StockQuotes(_ context.Context, tickers []string) ([]core.Quote, error) {
	return f.stockQuotes(tickers)
}

func (f *fakeMarket) StockList(_ context.Context, q core.StockListQuery) (core.StockPage, error) {
	return f.stockList(q)
}

func serve(h http.HandlerFunc, pattern, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return w
}

func TestMarketHandler_CurrencyQuotes(t *testing.T) {
	var got []core.Pair
	h := NewMarketHandler(&fakeMarket{
		quotes: func(pairs []core.Pair) ([]core.Quote, error) {
			got = pairs
			return []core.Quote{{Symbol: "USDBRL", Price: decimal.RequireFromString("5.4321"), Source: "awesomeapi"}}, nil
		},
	}, nil)

	w := serve(h.CurrencyQuotes, "GET /q", "/q?symbols=usd-brl,%20EURBRL")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []core.Pair{{Base: "USD", Quote: "BRL"}, {Base: "EUR", Quote: "BRL"}}, got)

	var body struct {
		Quotes []struct {
			Symbol string `json:"symbol"`
			Price  string `json:"price"`
		} `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Quotes, 1)
	assert.Equal(t, "5.4321", body.Quotes[0].Price)
}

func TestMarketHandler_CurrencyQuotes_Defaults(t *testing.T) {
	var got []core.Pair
	h := NewMarketHandler(&fakeMarket{
		quotes: func(pairs []core.Pair) ([]core.Quote, error) {
			got = pairs
			return nil, nil
		},
	}, nil)

	w := serve(h.CurrencyQuotes, "GET /q", "/q")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, market.DefaultPairs, got)
}

func TestMarketHandler_CurrencyQuotes_Invalid(t *testing.T) {
	h := NewMarketHandler(&fakeMarket{}, nil)
	w := serve(h.CurrencyQuotes, "GET /q", "/q?symbols=DOLAR")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarketHandler_Unavailable(t *testing.T) {
	h := NewMarketHandler(&fakeMarket{
		quotes: func([]core.Pair) ([]core.Quote, error) {
			return nil, core.Unavailable(7*time.Minute, nil)
		},
	}, nil)

	w := serve(h.CurrencyQuotes, "GET /q", "/q")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "420", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"retryAfter":420`)
}

func TestMarketHandler_CurrencyHistory(t *testing.T) {
	var gotDays int
	h := NewMarketHandler(&fakeMarket{
		daily: func(p core.Pair, days int) (core.History, error) {
			gotDays = days
			return core.History{Symbol: p.Symbol(), Points: []core.HistoryPoint{}}, nil
		},
	}, nil)

	w := serve(h.CurrencyHistory, "GET /h/{pair}", "/h/USD-BRL")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, market.DefaultHistoryDays, gotDays)

	w = serve(h.CurrencyHistory, "GET /h/{pair}", "/h/USD-BRL?days=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(h.CurrencyHistory, "GET /h/{pair}", "/h/dolar")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarketHandler_Convert(t *testing.T) {
	h := NewMarketHandler(&fakeMarket{
		convert: func(req market.ConvertRequest) (market.Conversion, error) {
			rate := decimal.RequireFromString("5.4321")
			return market.Conversion{
				From: req.From, To: req.To, Amount: req.Amount, Rate: rate,
				Converted: req.Amount.Mul(rate).RoundBank(2), Source: "awesomeapi",
			}, nil
		},
	}, nil)

	w := serve(h.Convert, "GET /c", "/c?from=usd&to=brl&amount=100")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"converted":"543.21"`)

	w = serve(h.Convert, "GET /c", "/c?from=usd&to=brl&amount=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarketHandler_TickerHistory(t *testing.T) {
	var got market.HistoryRequest
	h := NewMarketHandler(&fakeMarket{
		history: func(req market.HistoryRequest) (core.History, error) {
			got = req
			return core.History{}, core.NotFound("no history for %s", req.Symbol)
		},
	}, nil)

	w := serve(h.TickerHistory, "GET /t/{ticker}", "/t/petr4?range=1MO&interval=1d")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PETR4", got.Symbol)
	assert.Equal(t, "1mo", got.Range)

	w = serve(h.TickerHistory, "GET /t/{ticker}", "/t/PETR4?days=9999")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarketHandler_StockEndpoints(t *testing.T) {
	var gotQuery core.StockListQuery
	h := NewMarketHandler(&fakeMarket{
		stockQuotes: func(tickers []string) ([]core.Quote, error) {
			return nil, core.ErrUpstreamUnauthorized
		},
		stockList: func(q core.StockListQuery) (core.StockPage, error) {
			gotQuery = q
			return core.StockPage{Stocks: []core.StockListing{}, CurrentPage: 2}, nil
		},
	}, nil)

	w := serve(h.StockQuotes, "GET /s", "/s?symbols=PETR4")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = serve(h.StockQuotes, "GET /s", "/s")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(h.StockList, "GET /l", "/l?sector=Finance&sortOrder=DESC&limit=10&page=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "desc", gotQuery.SortOrder)
	assert.Equal(t, 10, gotQuery.Limit)

	w = serve(h.StockList, "GET /l", "/l?limit=1000")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
