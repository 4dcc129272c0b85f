package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/venibank/ledgerd/internal/domain"
)

// GetAccount retrieves a single account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, balance, created_at, updated_at FROM accounts WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.KindAccountNotFound, "account %s not found", id)
	}
	if err != nil {
		return nil, storageErr("get account", err)
	}
	return &a, nil
}

// CreateAccount provisions an account with the given opening balance.
// Re-creating an existing id is a no-op: the original account, balance
// included, is left untouched.
func (s *Store) CreateAccount(ctx context.Context, id string, initialBalance decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, balance) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		id, initialBalance,
	)
	if err != nil {
		return storageErr("create account", err)
	}
	return nil
}
