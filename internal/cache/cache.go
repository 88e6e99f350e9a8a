// Package cache is the short-TTL read cache in front of transaction
// listings. It is never the source of truth: every error degrades to a
// miss and the TTL bounds staleness even if an invalidation is lost.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finance_ledger/internal/domain"
	"finance_ledger/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
)

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "listing_cache_hits_total",
		Help: "Listing pages served from cache",
	})
	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "listing_cache_misses_total",
		Help: "Listing pages that fell through to the store",
	})
)

func init() {
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
}

type ListingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps a shared Redis client. A nil client disables the cache
// (every get is a miss, set and invalidate are no-ops).
func New(rdb *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{rdb: rdb, ttl: ttl}
}

// key composes the cache key from (user, pagination).
func key(userID int64, page, limit int) string {
	return fmt.Sprintf("transactions:%d:page=%d&limit=%d", userID, page, limit)
}

// GetPage returns the cached listing page, or a miss.
func (c *ListingCache) GetPage(ctx context.Context, userID int64, page, limit int) ([]*domain.Transaction, bool) {
	if c.rdb == nil {
		return nil, false
	}
	k := key(userID, page, limit)

	raw, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("cache get failed, treating as miss", "key", k, "error", err)
		}
		cacheMisses.Inc()
		return nil, false
	}

	var txns []*domain.Transaction
	if err := json.Unmarshal(raw, &txns); err != nil {
		logger.Warn("cache entry corrupt, treating as miss", "key", k, "error", err)
		cacheMisses.Inc()
		return nil, false
	}

	cacheHits.Inc()
	return txns, true
}

// SetPage stores a listing page under the configured TTL.
func (c *ListingCache) SetPage(ctx context.Context, userID int64, page, limit int, txns []*domain.Transaction) {
	if c.rdb == nil {
		return
	}
	k := key(userID, page, limit)

	raw, err := json.Marshal(txns)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, k, raw, c.ttl).Err(); err != nil {
		logger.Warn("cache set failed", "key", k, "error", err)
	}
}

// InvalidateUser drops every cached listing page for the user. Stale
// pages after a mutation are a correctness bug, so failures are logged
// at error level; the TTL is the fallback bound.
func (c *ListingCache) InvalidateUser(ctx context.Context, userID int64) {
	if c.rdb == nil {
		return
	}

	pattern := fmt.Sprintf("transactions:%d:*", userID)
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Error("cache invalidation scan failed, relying on TTL expiry", "user_id", userID, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Error("cache invalidation failed, relying on TTL expiry", "user_id", userID, "error", err)
	}
}
