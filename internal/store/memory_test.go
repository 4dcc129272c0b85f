package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venibank/ledgerd/internal/domain"
	"github.com/venibank/ledgerd/internal/ledger"
)

func record(key, account, amount string, dir domain.Direction) *domain.TransactionRecord {
	amt := decimal.RequireFromString(amount)
	return &domain.TransactionRecord{
		IdempotencyKey:   key,
		TransactionID:    "01TX" + key,
		AccountID:        account,
		Amount:           amt,
		Direction:        dir,
		ResultingBalance: decimal.Zero,
	}
}

func TestMemoryStore_CommitAppliesAndRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ms := NewMemoryStore()
	require.NoError(t, ms.CreateAccount(ctx, "a1", decimal.RequireFromString("100")))

	rec := record("k1", "a1", "40", domain.DirectionDebit)
	require.NoError(t, ms.Commit(ctx, rec, decimal.RequireFromString("-40")))

	assert.True(t, rec.ResultingBalance.Equal(decimal.RequireFromString("60")),
		"commit must report the balance it produced, got %s", rec.ResultingBalance)

	acct, err := ms.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("60")))

	stored, err := ms.GetTransactionRecord(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, rec.TransactionID, stored.TransactionID)
	assert.True(t, stored.ResultingBalance.Equal(decimal.RequireFromString("60")))
}

func TestMemoryStore_DuplicateKeyRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ms := NewMemoryStore()
	require.NoError(t, ms.CreateAccount(ctx, "a1", decimal.RequireFromString("100")))
	require.NoError(t, ms.Commit(ctx, record("k1", "a1", "10", domain.DirectionCredit), decimal.RequireFromString("10")))

	err := ms.Commit(ctx, record("k1", "a1", "10", domain.DirectionCredit), decimal.RequireFromString("10"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateKey)

	// The rejected commit moved nothing.
	acct, err := ms.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("110")))
}

func TestMemoryStore_DuplicateWinsOverBalanceGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ms := NewMemoryStore()
	require.NoError(t, ms.CreateAccount(ctx, "a1", decimal.RequireFromString("10")))
	require.NoError(t, ms.Commit(ctx, record("k1", "a1", "5", domain.DirectionDebit), decimal.RequireFromString("-5")))

	// Same key, unaffordable amount: the key guard must fire first so the
	// caller replays instead of reporting a failure the winner never saw.
	err := ms.Commit(ctx, record("k1", "a1", "9999", domain.DirectionDebit), decimal.RequireFromString("-9999"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateKey)
}

func TestMemoryStore_BalanceGuardRejectsOverdraw(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ms := NewMemoryStore()
	require.NoError(t, ms.CreateAccount(ctx, "a1", decimal.RequireFromString("10")))

	err := ms.Commit(ctx, record("k1", "a1", "25", domain.DirectionDebit), decimal.RequireFromString("-25"))
	assert.ErrorIs(t, err, ledger.ErrBalanceGuard)

	// All-or-nothing: no record either.
	rec, err := ms.GetTransactionRecord(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMemoryStore_CommitUnknownAccount(t *testing.T) {
	t.Parallel()

	ms := NewMemoryStore()
	err := ms.Commit(context.Background(), record("k1", "ghost", "5", domain.DirectionCredit), decimal.RequireFromString("5"))
	assert.Equal(t, domain.KindAccountNotFound, domain.KindOf(err))
}

func TestMemoryStore_CreateAccountIsInsertIfAbsent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ms := NewMemoryStore()
	require.NoError(t, ms.CreateAccount(ctx, "a1", decimal.RequireFromString("50")))
	require.NoError(t, ms.CreateAccount(ctx, "a1", decimal.RequireFromString("9999")))

	acct, err := ms.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("50")))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ms := NewMemoryStore()
	require.NoError(t, ms.CreateAccount(ctx, "a1", decimal.RequireFromString("50")))

	acct, err := ms.GetAccount(ctx, "a1")
	require.NoError(t, err)
	acct.Balance = decimal.RequireFromString("1000000")

	fresh, err := ms.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, fresh.Balance.Equal(decimal.RequireFromString("50")),
		"mutating a returned snapshot must not touch the store")
}

func TestMemoryStore_ConcurrentCommits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ms := NewMemoryStore()
	require.NoError(t, ms.CreateAccount(ctx, "a1", decimal.Zero))

	const commits = 100
	one := decimal.RequireFromString("1")

	var wg sync.WaitGroup
	wg.Add(commits)
	errs := make([]error, commits)
	for i := 0; i < commits; i++ {
		go func(n int) {
			defer wg.Done()
			errs[n] = ms.Commit(ctx, record(fmt.Sprintf("k-%d", n), "a1", "1", domain.DirectionCredit), one)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	acct, err := ms.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("100")))
}
