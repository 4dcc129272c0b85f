package api

import "github.com/shopspring/decimal"

// Wire shapes. Amounts travel as decimal strings in requests so no precision
// is lost to client-side floats; decimal.Decimal marshals responses the same
// way.

type CreateAccountRequest struct {
	AccountID string `json:"account_id"`
	// InitialBalance defaults to zero when omitted.
	InitialBalance string `json:"initial_balance,omitempty"`
}

type AccountResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

type TransactionRequest struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
	Direction string `json:"direction"`
}

type TransactionResponse struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Balance       decimal.Decimal `json:"balance"`
	// Replayed is true when this outcome was served from a previously
	// committed transaction with the same idempotency key.
	Replayed bool `json:"replayed"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
