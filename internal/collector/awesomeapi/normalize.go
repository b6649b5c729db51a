package awesomeapi

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/remessasegura/backend/internal/collector"
	"github.com/remessasegura/backend/internal/core"
)

// lastQuote is one entry of /json/last, keyed by the compact pair (USDBRL).
// Every numeric field arrives as a string.
type lastQuote struct {
	Code      string `json:"code"`
	CodeIn    string `json:"codein"`
	Name      string `json:"name"`
	High      string `json:"high"`
	Low       string `json:"low"`
	VarBid    string `json:"varBid"`
	PctChange string `json:"pctChange"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Timestamp string `json:"timestamp"`
}

// dailyPoint is one row of /json/daily.
type dailyPoint struct {
	Bid       string `json:"bid"`
	Timestamp string `json:"timestamp"`
}

func decodeLast(body []byte, pairs []core.Pair) ([]core.Quote, error) {
	var raw map[string]lastQuote
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding last quotes: %w", err)
	}

	quotes := make([]core.Quote, 0, len(pairs))
	for _, p := range pairs {
		item, ok := raw[p.Symbol()]
		if !ok {
			continue
		}
		q, err := toQuote(p, item)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func toQuote(p core.Pair, item lastQuote) (core.Quote, error) {
	price, err := collector.ParseDecimal(item.Bid)
	if err != nil {
		return core.Quote{}, fmt.Errorf("%s bid: %w", p.Symbol(), err)
	}
	change, err := collector.ParseOptionalDecimal(item.PctChange)
	if err != nil {
		return core.Quote{}, fmt.Errorf("%s pctChange: %w", p.Symbol(), err)
	}
	name := item.Name
	if name == "" {
		name = p.String()
	}
	return core.Quote{
		Symbol:        p.Symbol(),
		Name:          name,
		Price:         price,
		ChangePercent: change,
		Source:        Name,
	}, nil
}

func decodeDaily(body []byte) ([]core.HistoryPoint, error) {
	var raw []dailyPoint
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding daily history: %w", err)
	}

	points := make([]core.HistoryPoint, 0, len(raw))
	for i, row := range raw {
		ts, err := collector.ParseUnix(row.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		bid, err := collector.ParseDecimal(row.Bid)
		if err != nil {
			return nil, fmt.Errorf("row %d bid: %w", i, err)
		}
		points = append(points, core.HistoryPoint{Date: ts, Close: bid})
	}

	// The service returns newest first.
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}
