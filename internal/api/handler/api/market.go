package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/remessasegura/backend/internal/api/response"
	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/market"
	"go.uber.org/zap"
)

// MarketService is the part of market.Service the handlers use.
type MarketService interface {
	Quotes(ctx context.Context, pairs []core.Pair) ([]core.Quote, error)
	CurrencyHistory(ctx context.Context, pair core.Pair, days int) (core.History, error)
	Convert(ctx context.Context, req market.ConvertRequest) (market.Conversion, error)
	History(ctx context.Context, req market.HistoryRequest) (core.History, error)
	StockQuotes(ctx context.Context, tickers []string) ([]core.Quote, error)
	StockList(ctx context.Context, q core.StockListQuery) (core.StockPage, error)
}

// MarketHandler serves the anonymous market data routes.
type MarketHandler struct {
	svc    MarketService
	logger *zap.Logger
}

// NewMarketHandler creates a market handler.
func NewMarketHandler(svc MarketService, logger *zap.Logger) *MarketHandler {
	return &MarketHandler{svc: svc, logger: orNop(logger)}
}

// CurrencyQuotes handles GET /api/market/currency/quotes?symbols=USD-BRL,EUR-BRL
func (h *MarketHandler) CurrencyQuotes(w http.ResponseWriter, r *http.Request) {
	pairs, err := market.ParsePairs(splitList(r.URL.Query().Get("symbols")))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	quotes, err := h.svc.Quotes(r.Context(), pairs)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"quotes": quotes,
	})
}

// CurrencyHistory handles GET /api/market/currency/history/{pair}?days=30
func (h *MarketHandler) CurrencyHistory(w http.ResponseWriter, r *http.Request) {
	pair, ok := core.ParsePair(r.PathValue("pair"))
	if !ok {
		fail(w, r, h.logger, core.Validation("invalid currency pair %q", r.PathValue("pair")))
		return
	}
	days, err := queryInt(r, "days", market.DefaultHistoryDays)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	history, err := h.svc.CurrencyHistory(r.Context(), pair, days)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, history)
}

// Convert handles GET /api/market/currency/convert?from=USD&to=BRL&amount=100
func (h *MarketHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := market.ParseConvert(q.Get("from"), q.Get("to"), q.Get("amount"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	conv, err := h.svc.Convert(r.Context(), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, conv)
}

// StockQuotes handles GET /api/market/quote?symbols=PETR4,VALE3
func (h *MarketHandler) StockQuotes(w http.ResponseWriter, r *http.Request) {
	tickers, err := market.ParseTickers(splitList(r.URL.Query().Get("symbols")))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	quotes, err := h.svc.StockQuotes(r.Context(), tickers)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"results": quotes,
	})
}

// StockList handles GET /api/market/list
func (h *MarketHandler) StockList(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := core.StockListQuery{
		Search:    strings.TrimSpace(v.Get("search")),
		Sector:    strings.TrimSpace(v.Get("sector")),
		Type:      strings.TrimSpace(v.Get("type")),
		SortBy:    strings.TrimSpace(v.Get("sortBy")),
		SortOrder: strings.ToLower(strings.TrimSpace(v.Get("sortOrder"))),
	}
	var err error
	if q.Limit, err = queryInt(r, "limit", 0); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if q.Page, err = queryInt(r, "page", 0); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := market.ValidateListQuery(&q); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	page, err := h.svc.StockList(r.Context(), q)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, page)
}

// TickerHistory handles GET /api/market/history/{ticker}?range=1mo&interval=1d
func (h *MarketHandler) TickerHistory(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	req := market.HistoryRequest{
		Symbol:   r.PathValue("ticker"),
		Range:    v.Get("range"),
		Interval: v.Get("interval"),
	}
	var err error
	if req.Days, err = queryInt(r, "days", 0); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	history, err := h.svc.History(r.Context(), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, history)
}
