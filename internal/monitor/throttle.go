package monitor

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"kraken-watch/pkg/cache"
	"kraken-watch/pkg/exchanges/kraken"
)

// Exchange is the subset of the kraken client used by checks.
type Exchange interface {
	Balance(ctx context.Context) (kraken.Balance, error)
	Ticker(ctx context.Context, pair string) (kraken.TickerSnapshot, error)
	OHLC(ctx context.Context, pair string, intervalMinutes int) (kraken.CandleSeries, error)
}

// ThrottledExchange spaces calls to the exchange with a token bucket. The
// client itself never throttles.
type ThrottledExchange struct {
	Next    Exchange
	Limiter *rate.Limiter
}

// NewThrottledExchange allows rps calls per second with a burst of one.
func NewThrottledExchange(next Exchange, rps float64) *ThrottledExchange {
	return &ThrottledExchange{Next: next, Limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (t *ThrottledExchange) Balance(ctx context.Context) (kraken.Balance, error) {
	if err := t.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.Next.Balance(ctx)
}

func (t *ThrottledExchange) Ticker(ctx context.Context, pair string) (kraken.TickerSnapshot, error) {
	if err := t.Limiter.Wait(ctx); err != nil {
		return kraken.TickerSnapshot{}, err
	}
	return t.Next.Ticker(ctx, pair)
}

func (t *ThrottledExchange) OHLC(ctx context.Context, pair string, intervalMinutes int) (kraken.CandleSeries, error) {
	if err := t.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.Next.OHLC(ctx, pair, intervalMinutes)
}

// CachedExchange answers Ticker from recent prices so a check and concurrent
// API requests for the same pair share one exchange call. Balance and OHLC
// pass through.
type CachedExchange struct {
	Exchange
	Prices *cache.ShardedPriceCache
	TTL    time.Duration
}

func NewCachedExchange(next Exchange, ttl time.Duration) *CachedExchange {
	return &CachedExchange{Exchange: next, Prices: cache.NewShardedPriceCache(), TTL: ttl}
}

func (c *CachedExchange) Ticker(ctx context.Context, pair string) (kraken.TickerSnapshot, error) {
	if price, ok := c.Prices.Get(pair, c.TTL); ok {
		return kraken.TickerSnapshot{Pair: pair, LastPrice: price}, nil
	}
	snap, err := c.Exchange.Ticker(ctx, pair)
	if err != nil {
		return snap, err
	}
	c.Prices.Set(pair, snap.LastPrice)
	return snap, nil
}

// Prune drops prices older than TTL. Ticker already ignores them; this keeps
// pairs that stop being asked for from staying resident.
func (c *CachedExchange) Prune() int {
	return c.Prices.Cleanup(c.TTL)
}
