//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"

	"github.com/venibank/ledgerd/internal/domain"
)

// setupCache starts a disposable Redis container and returns a connected
// Cache plus a teardown function.
func setupCache(t *testing.T) (*Cache, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start Redis container")

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	c, err := New(ctx, endpoint, zap.NewNop())
	require.NoError(t, err)

	cleanup := func() {
		_ = c.Close()
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("warning: failed to terminate Redis container: %v", err)
		}
	}
	return c, cleanup
}

func TestIntegration_Cache_RoundTrip(t *testing.T) {
	c, cleanup := setupCache(t)
	t.Cleanup(cleanup)

	ctx := context.Background()

	// Miss before write.
	got, err := c.GetRecord(ctx, "key-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := &domain.TransactionRecord{
		IdempotencyKey:   "key-1",
		TransactionID:    "01TXCACHE",
		AccountID:        "acct-1",
		Amount:           decimal.RequireFromString("12.34"),
		Direction:        domain.DirectionDebit,
		ResultingBalance: decimal.RequireFromString("87.66"),
		CreatedAt:        time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, c.PutRecord(ctx, rec))

	got, err = c.GetRecord(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.TransactionID, got.TransactionID)
	assert.Equal(t, rec.AccountID, got.AccountID)
	assert.Equal(t, rec.Direction, got.Direction)
	assert.True(t, got.Amount.Equal(rec.Amount))
	assert.True(t, got.ResultingBalance.Equal(rec.ResultingBalance))
	assert.True(t, got.CreatedAt.Equal(rec.CreatedAt))

	// Entries must expire eventually rather than pile up forever.
	ttl, err := c.client.TTL(ctx, recordKeyPrefix+"key-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestIntegration_Cache_CorruptEntryIsDropped(t *testing.T) {
	c, cleanup := setupCache(t)
	t.Cleanup(cleanup)

	ctx := context.Background()

	require.NoError(t, c.client.Set(ctx, recordKeyPrefix+"bad", "not json{", time.Minute).Err())

	got, err := c.GetRecord(ctx, "bad")
	require.NoError(t, err, "a corrupt entry must read as a miss, not an error")
	assert.Nil(t, got)

	// And the poisoned key is gone.
	exists, err := c.client.Exists(ctx, recordKeyPrefix+"bad").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
