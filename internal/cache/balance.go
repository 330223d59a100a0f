// Package cache wraps the shared redis collaborator holding derived
// balances. The cache is never a source of truth: every method is
// best-effort and callers must treat a miss and an outage identically.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// BalanceCache stores serialized balance envelopes per account with a
// bounded TTL, invalidated by deletion on every write to the account.
type BalanceCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewBalanceCache(addr string, ttl time.Duration, logger *slog.Logger) *BalanceCache {
	return &BalanceCache{
		rdb:    redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		logger: logger,
	}
}

func key(accountID string) string {
	return "balance:" + accountID
}

// Get returns the cached envelope, or (nil, false) on miss or on any
// cache error. Reads must fall back to the ledger, never fail.
func (c *BalanceCache) Get(ctx context.Context, accountID string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key(accountID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("balance cache read failed", "account", accountID, "err", err)
		}
		return nil, false
	}
	return val, true
}

// Set writes the envelope with the configured TTL. Failures are logged
// and swallowed; the next read recomputes.
func (c *BalanceCache) Set(ctx context.Context, accountID string, body []byte) {
	if err := c.rdb.Set(ctx, key(accountID), body, c.ttl).Err(); err != nil {
		c.logger.Warn("balance cache write failed", "account", accountID, "err", err)
	}
}

// Invalidate deletes the account's entry. Deletion, not update: a
// precomputed value written here could already be stale.
func (c *BalanceCache) Invalidate(ctx context.Context, accountID string) {
	if err := c.rdb.Del(ctx, key(accountID)).Err(); err != nil {
		c.logger.Warn("balance cache invalidate failed", "account", accountID, "err", err)
	}
}

func (c *BalanceCache) Close() error {
	return c.rdb.Close()
}
