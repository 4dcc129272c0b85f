// Package cache provides a Redis-backed replay cache for committed
// transaction records. Records are immutable once written, so cached copies
// can never go stale; account balances are deliberately never cached.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/venibank/ledgerd/internal/domain"
)

const (
	recordKeyPrefix = "ledgerd:record:"

	// defaultTTL bounds cache growth. Expiry only costs a replay the fast
	// path; the ledger store remains the source of truth.
	defaultTTL = 24 * time.Hour
)

// Cache is safe for concurrent use. A nil *Cache is a valid no-op cache:
// every read misses and every write is dropped.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// New connects to Redis at addr. The connection is verified with a ping so
// that a misconfigured address fails at startup, not on first request.
func New(ctx context.Context, addr string, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return &Cache{client: client, ttl: defaultTTL, log: logger}, nil
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// GetRecord returns the cached record for the idempotency key, or (nil, nil)
// on a miss.
func (c *Cache) GetRecord(ctx context.Context, idempotencyKey string) (*domain.TransactionRecord, error) {
	if c == nil {
		return nil, nil
	}
	payload, err := c.client.Get(ctx, recordKeyPrefix+idempotencyKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", idempotencyKey, err)
	}

	var rec domain.TransactionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		// A corrupt entry must not break replays; drop it and miss.
		c.log.Warn("dropping undecodable cache entry",
			zap.String("idempotency_key", idempotencyKey), zap.Error(err))
		c.client.Del(ctx, recordKeyPrefix+idempotencyKey)
		return nil, nil
	}
	return &rec, nil
}

// PutRecord stores a committed record under its idempotency key.
func (c *Cache) PutRecord(ctx context.Context, rec *domain.TransactionRecord) error {
	if c == nil || rec == nil {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %q: %w", rec.IdempotencyKey, err)
	}
	if err := c.client.Set(ctx, recordKeyPrefix+rec.IdempotencyKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", rec.IdempotencyKey, err)
	}
	return nil
}
