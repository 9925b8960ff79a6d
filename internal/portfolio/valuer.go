// Package portfolio converts account balances into a single quote-currency
// total. Valuation is best effort: unpriced assets are skipped and a failed
// balance fetch degrades to zero.
package portfolio

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"kraken-watch/pkg/exchanges/kraken"
)

// DefaultQuoteAsset is the exchange's USD asset code.
const DefaultQuoteAsset = "ZUSD"

// Source is the part of the exchange client the valuer reads.
type Source interface {
	Balance(ctx context.Context) (kraken.Balance, error)
	Ticker(ctx context.Context, pair string) (kraken.TickerSnapshot, error)
}

// Holding is one priced asset.
type Holding struct {
	Asset    string          `json:"asset"`
	Pair     string          `json:"pair,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Value    decimal.Decimal `json:"value"`
}

// Valuation always carries a Total. Degraded is set, with Err, when the
// balance itself could not be fetched and Total is the zero default.
type Valuation struct {
	Total    decimal.Decimal `json:"total"`
	Quote    string          `json:"quote"`
	Priced   []Holding       `json:"priced"`
	Skipped  []string        `json:"skipped,omitempty"`
	Degraded bool            `json:"degraded"`
	Err      error           `json:"-"`
}

// Valuer prices balances against QuoteAsset. Pairs overrides the ticker pair
// for an asset; otherwise asset+QuoteAsset is used (XLTC -> XLTCZUSD).
type Valuer struct {
	Source     Source
	QuoteAsset string
	Pairs      map[string]string
	Log        zerolog.Logger
}

// New returns a Valuer quoting in ZUSD.
func New(src Source, log zerolog.Logger) *Valuer {
	return &Valuer{Source: src, QuoteAsset: DefaultQuoteAsset, Log: log}
}

func (v *Valuer) quote() string {
	if v.QuoteAsset == "" {
		return DefaultQuoteAsset
	}
	return v.QuoteAsset
}

// PairFor returns the ticker pair used to price asset.
func (v *Valuer) PairFor(asset string) string {
	if p, ok := v.Pairs[asset]; ok && p != "" {
		return p
	}
	return asset + v.quote()
}

// Value fetches balances and prices them. It never returns an error; a
// failed balance fetch yields a degraded zero valuation.
func (v *Valuer) Value(ctx context.Context) Valuation {
	bal, err := v.Source.Balance(ctx)
	if err != nil {
		v.Log.Warn().Err(err).Msg("balance fetch failed; portfolio value defaults to zero")
		return Valuation{Total: decimal.Zero, Quote: v.quote(), Degraded: true, Err: err}
	}
	return v.ValueBalances(ctx, bal)
}

// ValueBalances prices an already fetched balance.
func (v *Valuer) ValueBalances(ctx context.Context, bal kraken.Balance) Valuation {
	quote := v.quote()
	out := Valuation{Total: decimal.Zero, Quote: quote}

	for _, asset := range bal.Assets() {
		qty := bal[asset]
		if qty.IsZero() {
			continue
		}
		if asset == quote {
			out.Total = out.Total.Add(qty)
			out.Priced = append(out.Priced, Holding{Asset: asset, Quantity: qty, Price: decimal.NewFromInt(1), Value: qty})
			continue
		}
		pair := v.PairFor(asset)
		tick, err := v.Source.Ticker(ctx, pair)
		if err != nil {
			v.Log.Debug().Err(err).Str("asset", asset).Str("pair", pair).Msg("no price for asset; skipped")
			out.Skipped = append(out.Skipped, asset)
			continue
		}
		value := qty.Mul(tick.LastPrice)
		out.Total = out.Total.Add(value)
		out.Priced = append(out.Priced, Holding{Asset: asset, Pair: pair, Quantity: qty, Price: tick.LastPrice, Value: value})
	}
	return out
}
