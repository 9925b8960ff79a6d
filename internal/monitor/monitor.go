// Package monitor runs market checks: value the portfolio, analyze the watch
// pair, and hand the outcome to the journal.
package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kraken-watch/internal/analysis"
	"kraken-watch/internal/journal"
	"kraken-watch/internal/metrics"
	"kraken-watch/internal/portfolio"
)

// Valuator produces a portfolio valuation; it never fails.
type Valuator interface {
	Value(ctx context.Context) portfolio.Valuation
}

// MarketAnalyzer produces an analysis or an unavailable result.
type MarketAnalyzer interface {
	Analyze(ctx context.Context, pair string, opts analysis.Options) analysis.Result
}

// Report is the outcome of one check.
type Report struct {
	ID        string
	At        time.Time
	Pair      string
	Valuation portfolio.Valuation
	Result    analysis.Result
}

// Checker performs one market check per Run.
type Checker struct {
	Valuer   Valuator
	Analyzer MarketAnalyzer
	Pair     string
	Options  analysis.Options
	Sink     journal.Sink
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
	Clock    func() time.Time
}

func (c *Checker) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// Run values the portfolio, analyzes the pair and journals the result. An
// unavailable analysis is logged and reported, not journaled.
func (c *Checker) Run(ctx context.Context) Report {
	rep := Report{ID: uuid.NewString(), At: c.now(), Pair: c.Pair}
	log := c.Log.With().Str("check_id", rep.ID).Str("pair", c.Pair).Logger()

	rep.Valuation = c.Valuer.Value(ctx)
	if c.Metrics != nil {
		c.Metrics.RecordValuation(rep.Valuation.Total, rep.Valuation.Degraded)
	}
	if rep.Valuation.Degraded {
		log.Warn().Err(rep.Valuation.Err).Msg("portfolio valuation degraded")
	} else {
		log.Info().Str("portfolio_value", rep.Valuation.Total.StringFixed(2)).Str("quote", rep.Valuation.Quote).
			Strs("skipped", rep.Valuation.Skipped).Msg("portfolio valued")
	}

	rep.Result = c.Analyzer.Analyze(ctx, c.Pair, c.Options)
	if !rep.Result.Available() {
		if c.Metrics != nil {
			c.Metrics.ChecksUnavailable.Inc()
		}
		log.Error().Err(rep.Result.Err).Msg("could not analyze market")
		return rep
	}

	a := rep.Result.Analysis
	if c.Metrics != nil {
		c.Metrics.Signals.WithLabelValues(c.Pair, string(a.Signal)).Inc()
	}
	log.Info().Str("price", a.CurrentPrice.String()).Str("signal", string(a.Signal)).Str("reason", a.Reason).
		Msg("market analyzed")
	if a.Signal != analysis.Hold {
		log.Info().Str("signal", string(a.Signal)).Msg("signal detected; auto-trading not enabled, logging only")
	}

	if c.Sink != nil {
		c.Sink.Append(journal.AnalysisEntry{At: rep.At, PortfolioValue: rep.Valuation.Total, Analysis: *a})
	}
	return rep
}
