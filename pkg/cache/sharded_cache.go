package cache

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const numShards = 16

// ShardedPriceCache holds last-trade prices keyed by pair, split across
// shards so concurrent readers of different pairs do not contend.
type ShardedPriceCache struct {
	shards [numShards]*priceShard
	now    func() time.Time
}

type priceShard struct {
	mu    sync.RWMutex
	items map[string]priceEntry
}

type priceEntry struct {
	price     decimal.Decimal
	updatedAt time.Time
}

// NewShardedPriceCache creates a new sharded cache.
func NewShardedPriceCache() *ShardedPriceCache {
	c := &ShardedPriceCache{now: time.Now}
	for i := 0; i < numShards; i++ {
		c.shards[i] = &priceShard{
			items: make(map[string]priceEntry),
		}
	}
	return c
}

// getShard returns the shard for the given key.
func (c *ShardedPriceCache) getShard(key string) *priceShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

// Set stores a price for a pair.
func (c *ShardedPriceCache) Set(pair string, price decimal.Decimal) {
	shard := c.getShard(pair)
	shard.mu.Lock()
	shard.items[pair] = priceEntry{
		price:     price,
		updatedAt: c.now(),
	}
	shard.mu.Unlock()
}

// Get returns the price for pair if it was stored less than maxAge ago.
func (c *ShardedPriceCache) Get(pair string, maxAge time.Duration) (decimal.Decimal, bool) {
	shard := c.getShard(pair)
	shard.mu.RLock()
	entry, ok := shard.items[pair]
	shard.mu.RUnlock()
	if !ok || c.now().Sub(entry.updatedAt) >= maxAge {
		return decimal.Decimal{}, false
	}
	return entry.price, true
}

// Cleanup removes entries Get would no longer return for maxAge and reports
// how many went.
func (c *ShardedPriceCache) Cleanup(maxAge time.Duration) int {
	removed := 0
	cutoff := c.now().Add(-maxAge)

	for _, shard := range c.shards {
		shard.mu.Lock()
		for pair, entry := range shard.items {
			if !entry.updatedAt.After(cutoff) {
				delete(shard.items, pair)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}
