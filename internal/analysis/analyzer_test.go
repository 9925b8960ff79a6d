package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kraken-watch/pkg/exchanges/kraken"
)

type stubMarket struct {
	price     string
	closes    []float64
	tickerErr error
	ohlcErr   error
	interval  int
}

func (s *stubMarket) Ticker(_ context.Context, pair string) (kraken.TickerSnapshot, error) {
	if s.tickerErr != nil {
		return kraken.TickerSnapshot{}, s.tickerErr
	}
	return kraken.TickerSnapshot{Pair: pair, LastPrice: decimal.RequireFromString(s.price)}, nil
}

func (s *stubMarket) OHLC(_ context.Context, _ string, interval int) (kraken.CandleSeries, error) {
	s.interval = interval
	if s.ohlcErr != nil {
		return nil, s.ohlcErr
	}
	series := make(kraken.CandleSeries, len(s.closes))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range s.closes {
		series[i] = kraken.Candle{CloseTime: start.Add(time.Duration(i+1) * time.Hour), Close: decimal.NewFromFloat(c)}
	}
	return series, nil
}

func TestAnalyzeSignals(t *testing.T) {
	closes := []float64{90, 95, 100, 105, 110}
	tests := []struct {
		price  string
		signal Signal
		reason string
	}{
		{"91", Buy, ReasonNearLow},    // 91 <= 91.8
		{"91.8", Buy, ReasonNearLow},  // boundary inclusive
		{"109", Sell, ReasonNearHigh}, // 109 >= 107.8
		{"107.8", Sell, ReasonNearHigh},
		{"100", Hold, ReasonNone},
		{"80", Buy, ReasonNearLow},
		{"120", Sell, ReasonNearHigh},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			a := New(&stubMarket{price: tt.price, closes: closes})
			res := a.Analyze(context.Background(), "XXBTZUSD", DefaultOptions())
			require.True(t, res.Available(), "unexpected error: %v", res.Err)

			got := res.Analysis
			assert.Equal(t, tt.signal, got.Signal)
			assert.Equal(t, tt.reason, got.Reason)
			assert.True(t, got.LowPrice.Equal(decimal.NewFromInt(90)))
			assert.True(t, got.HighPrice.Equal(decimal.NewFromInt(110)))
			assert.True(t, got.AveragePrice.Equal(decimal.NewFromInt(100)))
			assert.Equal(t, 5, got.Candles)
			assert.Equal(t, "XXBTZUSD", got.Pair)
		})
	}
}

func TestAnalyzeSingleCandle(t *testing.T) {
	a := New(&stubMarket{price: "100", closes: []float64{100}})
	res := a.Analyze(context.Background(), "XXBTZUSD", DefaultOptions())
	require.True(t, res.Available())

	got := res.Analysis
	assert.True(t, got.LowPrice.Equal(got.HighPrice))
	assert.True(t, got.AveragePrice.Equal(decimal.NewFromInt(100)))
	// Both bands match on a flat range; BUY is checked first.
	assert.Equal(t, Buy, got.Signal)
}

func TestAnalyzeWindowUsesMostRecentCandles(t *testing.T) {
	closes := make([]float64, 0, 30)
	for i := 0; i < 6; i++ {
		closes = append(closes, 10) // older than the window
	}
	for i := 0; i < 24; i++ {
		closes = append(closes, float64(200+i))
	}
	src := &stubMarket{price: "212", closes: closes}
	res := New(src).Analyze(context.Background(), "XXBTZUSD", Options{})
	require.True(t, res.Available())

	assert.Equal(t, 60, src.interval)
	assert.Equal(t, 24, res.Analysis.Candles)
	assert.True(t, res.Analysis.LowPrice.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, Hold, res.Analysis.Signal)

	src = &stubMarket{price: "212", closes: closes}
	res = New(src).Analyze(context.Background(), "XXBTZUSD", Options{LookbackHours: 2, IntervalMinutes: 15})
	require.True(t, res.Available())
	assert.Equal(t, 15, src.interval)
	assert.Equal(t, 2, res.Analysis.Candles)
	assert.True(t, res.Analysis.LowPrice.Equal(decimal.NewFromInt(222)))
}

func TestAnalyzeWindowIsLookbackCandlesAtAnyInterval(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	res := New(&stubMarket{price: "190", closes: closes}).Analyze(context.Background(), "XXBTZUSD", Options{LookbackHours: 24, IntervalMinutes: 15})
	require.True(t, res.Available())
	assert.Equal(t, 24, res.Analysis.Candles)
	assert.True(t, res.Analysis.LowPrice.Equal(decimal.NewFromInt(176)))
	assert.True(t, res.Analysis.HighPrice.Equal(decimal.NewFromInt(199)))
}

func TestEvaluateEmptyCloses(t *testing.T) {
	a := New(&stubMarket{})
	assert.NotPanics(t, func() {
		_, ok := a.evaluate(decimal.NewFromInt(1), nil)
		assert.False(t, ok)
	})
}

func TestAnalyzeUnavailable(t *testing.T) {
	tests := []struct {
		name string
		src  *stubMarket
	}{
		{"ticker error", &stubMarket{tickerErr: &kraken.TransportError{Method: "GET", Endpoint: "/0/public/Ticker", Err: errors.New("timeout")}}},
		{"ohlc rejected", &stubMarket{price: "1", ohlcErr: &kraken.SemanticError{Endpoint: "/0/public/OHLC", Messages: []string{"EQuery:Unknown asset pair"}}}},
		{"no candles", &stubMarket{price: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(tt.src).Analyze(context.Background(), "XXBTZUSD", DefaultOptions())
			assert.False(t, res.Available())
			assert.Nil(t, res.Analysis)
			assert.ErrorIs(t, res.Err, ErrUnavailable)
		})
	}
}

func TestOptionsWindow(t *testing.T) {
	assert.Equal(t, 24, DefaultOptions().Window())
	assert.Equal(t, 1, Options{LookbackHours: 1, IntervalMinutes: 240}.Window())
	assert.Equal(t, 6, Options{LookbackHours: 6, IntervalMinutes: 5}.Window())
	assert.Equal(t, 24, Options{}.Window())
}
