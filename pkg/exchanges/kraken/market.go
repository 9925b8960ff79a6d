package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// TickerSnapshot is the last trade price for a pair.
type TickerSnapshot struct {
	Pair      string
	LastPrice decimal.Decimal
}

// Candle is one OHLC bucket. CloseTime is the bucket start plus the interval.
type Candle struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// CandleSeries is ordered oldest first.
type CandleSeries []Candle

// Closes returns the close prices in series order.
func (s CandleSeries) Closes() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Tail returns at most the last n candles.
func (s CandleSeries) Tail(n int) CandleSeries {
	if n <= 0 {
		return nil
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Balance maps asset symbols (e.g. "ZUSD", "XLTC") to held quantity.
type Balance map[string]decimal.Decimal

// Assets returns the symbols in sorted order.
func (b Balance) Assets() []string {
	out := make([]string, 0, len(b))
	for asset := range b {
		out = append(out, asset)
	}
	sort.Strings(out)
	return out
}

type tickerInfo struct {
	Close []string `json:"c"` // [price, lot volume]
}

// Ticker fetches the last trade price for pair.
func (c *Client) Ticker(ctx context.Context, pair string) (TickerSnapshot, error) {
	const endpoint = "/0/public/Ticker"
	result, err := c.PublicGet(ctx, "Ticker", url.Values{"pair": {pair}})
	if err != nil {
		return TickerSnapshot{}, err
	}

	var byPair map[string]json.RawMessage
	if err := json.Unmarshal(result, &byPair); err != nil {
		return TickerSnapshot{}, &FormatError{Endpoint: endpoint, Detail: err.Error()}
	}
	raw, err := pickPair(endpoint, byPair, pair)
	if err != nil {
		return TickerSnapshot{}, err
	}
	var info tickerInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return TickerSnapshot{}, &FormatError{Endpoint: endpoint, Detail: err.Error()}
	}
	if len(info.Close) == 0 {
		return TickerSnapshot{}, &FormatError{Endpoint: endpoint, Detail: "missing last trade price"}
	}
	price, err := decimal.NewFromString(info.Close[0])
	if err != nil {
		return TickerSnapshot{}, &FormatError{Endpoint: endpoint, Detail: fmt.Sprintf("last price %q: %v", info.Close[0], err)}
	}
	return TickerSnapshot{Pair: pair, LastPrice: price}, nil
}

// OHLC fetches candles for pair at intervalMinutes granularity.
func (c *Client) OHLC(ctx context.Context, pair string, intervalMinutes int) (CandleSeries, error) {
	const endpoint = "/0/public/OHLC"
	q := url.Values{"pair": {pair}}
	if intervalMinutes > 0 {
		q.Set("interval", strconv.Itoa(intervalMinutes))
	}
	result, err := c.PublicGet(ctx, "OHLC", q)
	if err != nil {
		return nil, err
	}

	var byPair map[string]json.RawMessage
	if err := json.Unmarshal(result, &byPair); err != nil {
		return nil, &FormatError{Endpoint: endpoint, Detail: err.Error()}
	}
	raw, err := pickPair(endpoint, byPair, pair)
	if err != nil {
		return nil, err
	}
	var rows [][]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &FormatError{Endpoint: endpoint, Detail: err.Error()}
	}

	step := time.Duration(intervalMinutes) * time.Minute
	series := make(CandleSeries, 0, len(rows))
	for i, row := range rows {
		// [time, open, high, low, close, vwap, volume, count]
		if len(row) < 5 {
			return nil, &FormatError{Endpoint: endpoint, Detail: fmt.Sprintf("row %d has %d fields", i, len(row))}
		}
		closePx, ok := toDecimal(row[4])
		if !ok {
			return nil, &FormatError{Endpoint: endpoint, Detail: fmt.Sprintf("row %d close %v", i, row[4])}
		}
		open := time.Unix(toInt64(row[0]), 0).UTC()
		candle := Candle{OpenTime: open, CloseTime: open.Add(step), Close: closePx}
		candle.Open, _ = toDecimal(row[1])
		candle.High, _ = toDecimal(row[2])
		candle.Low, _ = toDecimal(row[3])
		if len(row) > 6 {
			candle.Volume, _ = toDecimal(row[6])
		}
		series = append(series, candle)
	}
	return series, nil
}

// Balance fetches account balances through the private Balance endpoint.
func (c *Client) Balance(ctx context.Context) (Balance, error) {
	const endpoint = "/0/private/Balance"
	result, err := c.PrivateCall(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, &FormatError{Endpoint: endpoint, Detail: err.Error()}
	}
	out := make(Balance, len(raw))
	for asset, qty := range raw {
		v, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, &FormatError{Endpoint: endpoint, Detail: fmt.Sprintf("%s quantity %q: %v", asset, qty, err)}
		}
		out[asset] = v
	}
	return out, nil
}

// pickPair returns the entry for pair. The exchange sometimes answers under
// its canonical name (XBTUSD -> XXBTZUSD); a single unambiguous entry is used
// in that case.
func pickPair(endpoint string, byPair map[string]json.RawMessage, pair string) (json.RawMessage, error) {
	if raw, ok := byPair[pair]; ok {
		return raw, nil
	}
	var only json.RawMessage
	n := 0
	for k, v := range byPair {
		if k == "last" {
			continue
		}
		only = v
		n++
	}
	if n == 1 {
		return only, nil
	}
	return nil, &FormatError{Endpoint: endpoint, Detail: fmt.Sprintf("pair %s not in result", pair)}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(t)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	default:
		return decimal.Zero, false
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	case json.Number:
		i, _ := t.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(t, 10, 64)
		return i
	default:
		return 0
	}
}
