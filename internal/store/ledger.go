package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/venibank/ledgerd/internal/domain"
)

// GetTransactionRecord retrieves the record committed under the given
// idempotency key, or (nil, nil) when no transaction with that key has ever
// committed. Absence is ordinary control flow for the processor, not an error.
func (s *Store) GetTransactionRecord(ctx context.Context, idempotencyKey string) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	err := s.pool.QueryRow(ctx,
		`SELECT idempotency_key, transaction_id, account_id, amount, direction, resulting_balance, created_at
		 FROM transaction_records WHERE idempotency_key = $1`,
		idempotencyKey,
	).Scan(
		&rec.IdempotencyKey, &rec.TransactionID, &rec.AccountID,
		&rec.Amount, &rec.Direction, &rec.ResultingBalance, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get transaction record", err)
	}
	return &rec, nil
}
