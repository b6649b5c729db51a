package brapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/remessasegura/backend/internal/collector"
	"github.com/remessasegura/backend/internal/core"
	"github.com/shopspring/decimal"
)

type quoteResponse struct {
	Results []quoteResult `json:"results"`
}

type quoteResult struct {
	Symbol                     string       `json:"symbol"`
	ShortName                  string       `json:"shortName"`
	LongName                   string       `json:"longName"`
	RegularMarketPrice         json.Number  `json:"regularMarketPrice"`
	RegularMarketChangePercent json.Number  `json:"regularMarketChangePercent"`
	HistoricalDataPrice        []historyRow `json:"historicalDataPrice"`
}

type historyRow struct {
	Date  json.Number `json:"date"`
	Close json.Number `json:"close"`
}

type currencyResponse struct {
	Currency []currencyResult `json:"currency"`
}

type currencyResult struct {
	FromCurrency     string `json:"fromCurrency"`
	ToCurrency       string `json:"toCurrency"`
	Name             string `json:"name"`
	BidPrice         string `json:"bidPrice"`
	PercentageChange string `json:"percentageChange"`
}

type listResponse struct {
	Stocks      []listStock `json:"stocks"`
	CurrentPage int         `json:"currentPage"`
	TotalPages  int         `json:"totalPages"`
	TotalCount  int         `json:"totalCount"`
	HasNextPage bool        `json:"hasNextPage"`
}

type listStock struct {
	Stock     string      `json:"stock"`
	Name      string      `json:"name"`
	Close     json.Number `json:"close"`
	Change    json.Number `json:"change"`
	Volume    json.Number `json:"volume"`
	MarketCap json.Number `json:"market_cap"`
	Logo      string      `json:"logo"`
	Sector    string      `json:"sector"`
	Type      string      `json:"type"`
}

func displayName(short, long, fallback string) string {
	if short != "" {
		return short
	}
	if long != "" {
		return long
	}
	return fallback
}

func optional(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return collector.NumberDecimal(n)
}

func decodeQuotes(body []byte) ([]core.Quote, error) {
	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding quotes: %w", err)
	}

	quotes := make([]core.Quote, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Symbol == "" {
			return nil, fmt.Errorf("quote without symbol")
		}
		price, err := collector.NumberDecimal(r.RegularMarketPrice)
		if err != nil {
			return nil, fmt.Errorf("%s price: %w", r.Symbol, err)
		}
		change, err := optional(r.RegularMarketChangePercent)
		if err != nil {
			return nil, fmt.Errorf("%s change: %w", r.Symbol, err)
		}
		quotes = append(quotes, core.Quote{
			Symbol:        r.Symbol,
			Name:          displayName(r.ShortName, r.LongName, r.Symbol),
			Price:         price,
			ChangePercent: change,
			Source:        Name,
		})
	}
	return quotes, nil
}

func decodeHistory(body []byte) (core.History, error) {
	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.History{}, fmt.Errorf("decoding history: %w", err)
	}
	if len(resp.Results) == 0 {
		return core.History{Source: Name}, nil
	}

	r := resp.Results[0]
	h := core.History{
		Symbol: r.Symbol,
		Name:   displayName(r.ShortName, r.LongName, ""),
		Source: Name,
		Points: make([]core.HistoryPoint, 0, len(r.HistoricalDataPrice)),
	}
	for i, row := range r.HistoricalDataPrice {
		// Candles without a close are skipped
		if row.Close == "" {
			continue
		}
		ts, err := row.Date.Int64()
		if err != nil {
			return core.History{}, fmt.Errorf("row %d date: %w", i, err)
		}
		closePrice, err := collector.NumberDecimal(row.Close)
		if err != nil {
			return core.History{}, fmt.Errorf("row %d close: %w", i, err)
		}
		h.Points = append(h.Points, core.HistoryPoint{Date: ts, Close: closePrice})
	}
	return h, nil
}

func decodeCurrency(body []byte, pair core.Pair) (core.Quote, bool, error) {
	var resp currencyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.Quote{}, false, fmt.Errorf("decoding currency: %w", err)
	}

	for _, c := range resp.Currency {
		if !strings.EqualFold(c.FromCurrency, pair.Base) || !strings.EqualFold(c.ToCurrency, pair.Quote) {
			continue
		}
		price, err := collector.ParseDecimal(c.BidPrice)
		if err != nil {
			return core.Quote{}, false, fmt.Errorf("%s bidPrice: %w", pair.Symbol(), err)
		}
		change, err := collector.ParseOptionalDecimal(c.PercentageChange)
		if err != nil {
			return core.Quote{}, false, fmt.Errorf("%s percentageChange: %w", pair.Symbol(), err)
		}
		return core.Quote{
			Symbol:        pair.Symbol(),
			Name:          displayName(c.Name, "", pair.String()),
			Price:         price,
			ChangePercent: change,
			Source:        Name,
		}, true, nil
	}
	return core.Quote{}, false, nil
}

func decodeList(body []byte) (core.StockPage, error) {
	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.StockPage{}, fmt.Errorf("decoding list: %w", err)
	}

	page := core.StockPage{
		Stocks:      make([]core.StockListing, 0, len(resp.Stocks)),
		CurrentPage: resp.CurrentPage,
		TotalPages:  resp.TotalPages,
		TotalCount:  resp.TotalCount,
		HasNextPage: resp.HasNextPage,
	}
	for _, s := range resp.Stocks {
		if s.Stock == "" {
			return core.StockPage{}, fmt.Errorf("listing without ticker")
		}
		closePrice, err := optional(s.Close)
		if err != nil {
			return core.StockPage{}, fmt.Errorf("%s close: %w", s.Stock, err)
		}
		change, err := optional(s.Change)
		if err != nil {
			return core.StockPage{}, fmt.Errorf("%s change: %w", s.Stock, err)
		}
		marketCap, err := optional(s.MarketCap)
		if err != nil {
			return core.StockPage{}, fmt.Errorf("%s market_cap: %w", s.Stock, err)
		}
		var volume int64
		if s.Volume != "" {
			v, err := optional(s.Volume)
			if err != nil {
				return core.StockPage{}, fmt.Errorf("%s volume: %w", s.Stock, err)
			}
			volume = v.IntPart()
		}
		page.Stocks = append(page.Stocks, core.StockListing{
			Symbol:    s.Stock,
			Name:      s.Name,
			Close:     closePrice,
			Change:    change,
			Volume:    volume,
			MarketCap: marketCap,
			Logo:      s.Logo,
			Sector:    s.Sector,
			Type:      s.Type,
		})
	}
	return page, nil
}
