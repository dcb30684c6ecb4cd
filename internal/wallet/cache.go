package wallet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const balanceKeyPrefix = "wallet:balance:v1:"

// BalanceCache is a short-lived Redis cache in front of balance reads.
// Balance reads are racy by contract, so serving a slightly stale value is
// acceptable; settlement invalidates the key after every mutation.
type BalanceCache struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewBalanceCache builds a balance cache. A nil client disables caching.
func NewBalanceCache(cache *redis.Client, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BalanceCache{cache: cache, ttl: ttl}
}

// Get returns a cached balance and whether one was present.
func (c *BalanceCache) Get(ctx context.Context, userID string) (Balance, bool) {
	if c == nil || c.cache == nil {
		return Balance{}, false
	}
	payload, err := c.cache.Get(ctx, balanceKeyPrefix+userID).Bytes()
	if err != nil {
		return Balance{}, false
	}
	var b Balance
	if err := json.Unmarshal(payload, &b); err != nil {
		return Balance{}, false
	}
	return b, true
}

// Put stores a balance read, best effort.
func (c *BalanceCache) Put(ctx context.Context, b Balance) {
	if c == nil || c.cache == nil {
		return
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return
	}
	c.cache.Set(ctx, balanceKeyPrefix+b.UserID, payload, c.ttl)
}

// Invalidate drops the cached balance after a settlement mutates it.
func (c *BalanceCache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Del(ctx, balanceKeyPrefix+userID)
}
