package cache

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPriceCacheExpiry(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	c := NewShardedPriceCache()
	c.now = func() time.Time { return now }

	c.Set("XXBTZUSD", decimal.RequireFromString("91.5"))
	c.Set("XETHZUSD", decimal.RequireFromString("3000"))

	price, ok := c.Get("XXBTZUSD", 10*time.Second)
	assert.True(t, ok)
	assert.Equal(t, "91.5", price.String())

	_, ok = c.Get("XLTCZUSD", 10*time.Second)
	assert.False(t, ok)

	now = now.Add(10 * time.Second)
	_, ok = c.Get("XXBTZUSD", 10*time.Second)
	assert.False(t, ok, "entry exactly maxAge old is stale")
	_, ok = c.Get("XXBTZUSD", 11*time.Second)
	assert.True(t, ok)
}

func TestPriceCacheCleanup(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	c := NewShardedPriceCache()
	c.now = func() time.Time { return now }

	c.Set("XXBTZUSD", decimal.RequireFromString("91.5"))
	c.Set("XETHZUSD", decimal.RequireFromString("3000"))
	now = now.Add(10 * time.Second)
	c.Set("XETHZUSD", decimal.RequireFromString("3001"))

	assert.Equal(t, 0, c.Cleanup(11*time.Second))
	assert.Equal(t, 1, c.Cleanup(10*time.Second))
	assert.Equal(t, 0, c.Cleanup(10*time.Second))

	_, ok := c.Get("XXBTZUSD", time.Hour)
	assert.False(t, ok, "cleaned entry is gone at any age")
	price, ok := c.Get("XETHZUSD", time.Second)
	assert.True(t, ok)
	assert.Equal(t, "3001", price.String())
}
