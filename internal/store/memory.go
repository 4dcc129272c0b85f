package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/venibank/ledgerd/internal/domain"
	"github.com/venibank/ledgerd/internal/ledger"
)

// MemoryStore is an in-process implementation of the store contracts with the
// same guard and atomicity semantics as the Postgres store: commits are
// serialized by a single mutex, the key guard and the balance floor are
// checked inside the critical section, and a rejected commit leaves no trace.
// It backs unit tests and -dev runs of the api binary.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	records  map[string]*domain.TransactionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*domain.Account),
		records:  make(map[string]*domain.TransactionRecord),
	}
}

// GetAccount returns a snapshot copy of the account.
func (m *MemoryStore) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, domain.Errorf(domain.KindAccountNotFound, "account %s not found", id)
	}
	cp := *a
	return &cp, nil
}

// CreateAccount provisions an account; re-creating an existing id is a no-op.
func (m *MemoryStore) CreateAccount(_ context.Context, id string, initialBalance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; ok {
		return nil
	}
	now := time.Now().UTC()
	m.accounts[id] = &domain.Account{ID: id, Balance: initialBalance, CreatedAt: now, UpdatedAt: now}
	return nil
}

// GetTransactionRecord returns a snapshot copy of the record for the key, or
// (nil, nil) when the key has never committed.
func (m *MemoryStore) GetTransactionRecord(_ context.Context, idempotencyKey string) (*domain.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[idempotencyKey]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// Commit applies the guarded pair under the store mutex. Failure modes and
// the ResultingBalance contract match (*Store).Commit.
func (m *MemoryStore) Commit(_ context.Context, rec *domain.TransactionRecord, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.IdempotencyKey]; ok {
		return ledger.ErrDuplicateKey
	}

	a, ok := m.accounts[rec.AccountID]
	if !ok {
		return domain.Errorf(domain.KindAccountNotFound, "account %s not found", rec.AccountID)
	}

	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return ledger.ErrBalanceGuard
	}

	a.Balance = next
	a.UpdatedAt = time.Now().UTC()

	rec.ResultingBalance = next
	cp := *rec
	m.records[rec.IdempotencyKey] = &cp
	return nil
}
