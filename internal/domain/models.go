package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether a transaction adds to or subtracts from a balance.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// Delta converts a positive magnitude into the signed amount to add to a
// balance: positive for credits, negative for debits.
func (d Direction) Delta(amount decimal.Decimal) decimal.Decimal {
	if d == DirectionDebit {
		return amount.Neg()
	}
	return amount
}

// Account represents a user's balance in the ledger.
// Balance never goes negative once an operation has completed.
type Account struct {
	ID        string          `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TransactionRecord is the durable outcome of one applied transaction, keyed
// by the caller-supplied idempotency key. At most one record ever exists per
// key, and a record is immutable once written.
//
// ResultingBalance is the account balance at the moment this record's commit
// became durable. It is a snapshot: later transactions move the account's
// current balance without touching it.
type TransactionRecord struct {
	IdempotencyKey   string          `json:"idempotency_key"`
	TransactionID    string          `json:"transaction_id"`
	AccountID        string          `json:"account_id"`
	Amount           decimal.Decimal `json:"amount"`
	Direction        Direction       `json:"direction"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
	CreatedAt        time.Time       `json:"created_at"`
}
