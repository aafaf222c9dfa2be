package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const recentKeyPrefix = "ledger:recent:"

// RecentCache keeps the recent-transactions view in Redis between
// mutations. Misses and redis failures fall through to the repository.
type RecentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRecentCache constructs a RecentCache.
func NewRecentCache(client *redis.Client, ttl time.Duration) *RecentCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RecentCache{client: client, ttl: ttl}
}

func recentKey(limit int, exclude string) string {
	return fmt.Sprintf("%s%d:%s", recentKeyPrefix, limit, strings.ToLower(exclude))
}

// Get returns the cached view if warm.
func (c *RecentCache) Get(ctx context.Context, limit int, excludeCustomerName string) ([]Transaction, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, recentKey(limit, excludeCustomerName)).Bytes()
	if err != nil {
		return nil, false
	}
	var txs []Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, false
	}
	return txs, true
}

// Set stores the view.
func (c *RecentCache) Set(ctx context.Context, limit int, excludeCustomerName string, txs []Transaction) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(txs)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, recentKey(limit, excludeCustomerName), raw, c.ttl).Err()
}

// Invalidate drops every cached view. Called after each mutation.
func (c *RecentCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, recentKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		_ = c.client.Del(ctx, iter.Val()).Err()
	}
}
