package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/venibank/ledgerd/internal/domain"
	"github.com/venibank/ledgerd/internal/ledger"
)

// Commit executes the two guarded writes of one transaction as a single
// all-or-nothing unit: the record insert, guarded by "no record exists for
// this idempotency key", and the balance update, guarded by "the resulting
// balance stays >= 0" (trivially satisfied by credits). Either both become
// durable or neither does.
//
// Guard failures come back distinguishably: ledger.ErrDuplicateKey for the
// key guard, ledger.ErrBalanceGuard for the floor, a KindAccountNotFound
// error when the account has vanished, and ledger.ErrCommitConflict for
// unrelated engine aborts.
//
// On success rec.ResultingBalance holds the balance this commit produced,
// which can differ from the caller's projection when another commit landed
// between the account read and this call.
func (s *Store) Commit(ctx context.Context, rec *domain.TransactionRecord, delta decimal.Decimal) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return storageErr("begin commit unit", err)
	}
	defer tx.Rollback(ctx)

	// Key guard first. Losing a same-key race must surface as a duplicate
	// even when the balance floor would also have rejected the update, so
	// the caller replays the winner's outcome instead of reporting a
	// failure the winner never saw. Concurrent inserts of the same key
	// serialize on the primary key: the loser blocks until the winner
	// resolves, then gets the unique violation.
	_, err = tx.Exec(ctx,
		`INSERT INTO transaction_records
			(idempotency_key, transaction_id, account_id, amount, direction, resulting_balance, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.IdempotencyKey, rec.TransactionID, rec.AccountID,
		rec.Amount, rec.Direction, rec.ResultingBalance, rec.CreatedAt,
	)
	if err != nil {
		return classifyCommitErr("insert record", err)
	}

	// Balance floor guard. The predicate is re-evaluated under the row
	// lock, so concurrent commits against the same account linearize here
	// with no lost updates. RETURNING yields the balance as of this commit
	// point: the row stays locked until the unit resolves, so no other
	// commit can move it in between.
	var committed decimal.Decimal
	err = tx.QueryRow(ctx,
		`UPDATE accounts
		 SET balance = balance + $2, updated_at = now()
		 WHERE id = $1 AND balance + $2 >= 0
		 RETURNING balance`,
		rec.AccountID, delta,
	).Scan(&committed)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, rec.AccountID,
		).Scan(&exists); err != nil {
			return classifyCommitErr("check account", err)
		}
		if !exists {
			return domain.Errorf(domain.KindAccountNotFound, "account %s not found", rec.AccountID)
		}
		return ledger.ErrBalanceGuard
	}
	if err != nil {
		return classifyCommitErr("update balance", err)
	}

	// The record must snapshot the balance this commit actually produced,
	// not the possibly stale projection computed before the row lock.
	if !committed.Equal(rec.ResultingBalance) {
		if _, err := tx.Exec(ctx,
			`UPDATE transaction_records SET resulting_balance = $2 WHERE idempotency_key = $1`,
			rec.IdempotencyKey, committed,
		); err != nil {
			return classifyCommitErr("snapshot resulting balance", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyCommitErr("commit unit", err)
	}

	rec.ResultingBalance = committed
	return nil
}
