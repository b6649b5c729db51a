package core

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Quote is a provider-independent price quote.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Source        string          `json:"source"`
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price.IsPositive()
}

// HistoryPoint is one close price at a unix timestamp (seconds).
type HistoryPoint struct {
	Date  int64           `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// Pair is a currency pair such as USD-BRL.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair accepts "USD-BRL", "usdbrl" or "USDBRL". Unseparated input must
// be six letters.
func ParsePair(s string) (Pair, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if base, quote, ok := strings.Cut(s, "-"); ok {
		p := Pair{Base: base, Quote: quote}
		return p, IsCurrencyCode(base) && IsCurrencyCode(quote)
	}
	if len(s) != 6 {
		return Pair{}, false
	}
	p := Pair{Base: s[:3], Quote: s[3:]}
	return p, IsCurrencyCode(p.Base) && IsCurrencyCode(p.Quote)
}

// IsCurrencyCode reports whether s is 3 to 5 upper-case ASCII letters.
func IsCurrencyCode(s string) bool {
	if len(s) < 3 || len(s) > 5 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// String returns the dashed form used in provider URLs.
func (p Pair) String() string { return p.Base + "-" + p.Quote }

// Symbol returns the compact form used as a quote symbol (USDBRL).
func (p Pair) Symbol() string { return p.Base + p.Quote }

// StockListing is one row of a stock screener listing.
type StockListing struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Close     decimal.Decimal `json:"close"`
	Change    decimal.Decimal `json:"change"`
	Volume    int64           `json:"volume"`
	MarketCap decimal.Decimal `json:"marketCap"`
	Logo      string          `json:"logo,omitempty"`
	Sector    string          `json:"sector,omitempty"`
	Type      string          `json:"type,omitempty"`
}

// StockPage is a page of a stock listing.
type StockPage struct {
	Stocks      []StockListing `json:"stocks"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	TotalCount  int            `json:"totalCount"`
	HasNextPage bool           `json:"hasNextPage"`
}

// History is a close-price series for one symbol.
type History struct {
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name,omitempty"`
	Range    string         `json:"range,omitempty"`
	Interval string         `json:"interval,omitempty"`
	Source   string         `json:"source"`
	Points   []HistoryPoint `json:"historicalDataPrice"`
}

// StockListQuery filters a stock listing. Zero values are omitted.
type StockListQuery struct {
	Search    string
	Sector    string
	Type      string
	SortBy    string
	SortOrder string
	Limit     int
	Page      int
}

// Encode returns the query string in key order, also used as a cache key.
func (q StockListQuery) Encode() string {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("search", q.Search)
	set("sector", q.Sector)
	set("type", q.Type)
	set("sortBy", q.SortBy)
	set("sortOrder", q.SortOrder)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v.Encode()
}
