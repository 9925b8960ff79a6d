// Package analysis derives a buy/sell/hold signal from the current price and
// recent candle closes.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kraken-watch/pkg/exchanges/kraken"
)

// Signal is the trading signal.
type Signal string

const (
	Buy  Signal = "BUY"
	Sell Signal = "SELL"
	Hold Signal = "HOLD"
)

const (
	ReasonNearLow  = "price near period low"
	ReasonNearHigh = "price near period high"
	ReasonNone     = "no clear signal"
)

// ErrUnavailable marks a check that could not be completed. Results carrying
// it are a normal outcome, not a failure of the caller.
var ErrUnavailable = errors.New("analysis unavailable")

// MarketSource is the part of the exchange client the analyzer reads.
type MarketSource interface {
	Ticker(ctx context.Context, pair string) (kraken.TickerSnapshot, error)
	OHLC(ctx context.Context, pair string, intervalMinutes int) (kraken.CandleSeries, error)
}

// Analysis is a derived snapshot; recomputed on every check.
type Analysis struct {
	Pair         string          `json:"pair"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	LowPrice     decimal.Decimal `json:"lowPrice"`
	HighPrice    decimal.Decimal `json:"highPrice"`
	Signal       Signal          `json:"signal"`
	Reason       string          `json:"reason"`
	Candles      int             `json:"candles"`
	At           time.Time       `json:"at"`
}

// Result is either an Analysis or the reason none could be produced.
type Result struct {
	Analysis *Analysis
	Err      error
}

// Available reports whether an analysis was produced.
func (r Result) Available() bool { return r.Analysis != nil && r.Err == nil }

// Options controls the lookback window.
type Options struct {
	LookbackHours   int
	IntervalMinutes int
}

// DefaultOptions is a 24h window of hourly candles.
func DefaultOptions() Options { return Options{LookbackHours: 24, IntervalMinutes: 60} }

// Window is the number of most recent candles analyzed: one per lookback
// hour, whatever the candle interval.
func (o Options) Window() int {
	return o.withDefaults().LookbackHours
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.LookbackHours <= 0 {
		o.LookbackHours = def.LookbackHours
	}
	if o.IntervalMinutes <= 0 {
		o.IntervalMinutes = def.IntervalMinutes
	}
	return o
}

// Analyzer applies the band rule. BuyBand/SellBand are fractions of the
// period low/high (0.02 = within 2%).
type Analyzer struct {
	Source   MarketSource
	BuyBand  decimal.Decimal
	SellBand decimal.Decimal
	Clock    func() time.Time
}

// New returns an Analyzer with 2% bands.
func New(src MarketSource) *Analyzer {
	return &Analyzer{
		Source:   src,
		BuyBand:  decimal.NewFromFloat(0.02),
		SellBand: decimal.NewFromFloat(0.02),
		Clock:    time.Now,
	}
}

// Analyze fetches the ticker and candles for pair. Any fetch or format error
// yields a Result wrapping ErrUnavailable.
func (a *Analyzer) Analyze(ctx context.Context, pair string, opts Options) Result {
	opts = opts.withDefaults()

	tick, err := a.Source.Ticker(ctx, pair)
	if err != nil {
		return unavailable("ticker", err)
	}
	series, err := a.Source.OHLC(ctx, pair, opts.IntervalMinutes)
	if err != nil {
		return unavailable("ohlc", err)
	}
	window := series.Tail(opts.Window())
	res, ok := a.evaluate(tick.LastPrice, window.Closes())
	if !ok {
		return unavailable("ohlc", errors.New("no candles"))
	}
	res.Pair = pair
	res.Candles = len(window)
	if a.Clock != nil {
		res.At = a.Clock()
	} else {
		res.At = time.Now()
	}
	return Result{Analysis: &res}
}

// evaluate applies the rule to a price and the window closes; false when
// there are no closes. BUY is checked first, so it wins when both bands
// overlap.
func (a *Analyzer) evaluate(current decimal.Decimal, closes []decimal.Decimal) (Analysis, bool) {
	if len(closes) == 0 {
		return Analysis{}, false
	}
	low, high, sum := closes[0], closes[0], decimal.Zero
	for _, c := range closes {
		sum = sum.Add(c)
		if c.LessThan(low) {
			low = c
		}
		if c.GreaterThan(high) {
			high = c
		}
	}
	out := Analysis{
		CurrentPrice: current,
		AveragePrice: sum.Div(decimal.NewFromInt(int64(len(closes)))),
		LowPrice:     low,
		HighPrice:    high,
	}

	one := decimal.NewFromInt(1)
	switch {
	case current.LessThanOrEqual(low.Mul(one.Add(a.BuyBand))):
		out.Signal, out.Reason = Buy, ReasonNearLow
	case current.GreaterThanOrEqual(high.Mul(one.Sub(a.SellBand))):
		out.Signal, out.Reason = Sell, ReasonNearHigh
	default:
		out.Signal, out.Reason = Hold, ReasonNone
	}
	return out, true
}

func unavailable(stage string, err error) Result {
	return Result{Err: fmt.Errorf("%w: %s: %w", ErrUnavailable, stage, err)}
}
