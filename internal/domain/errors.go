package domain

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the ledger core can produce. Callers branch
// on the kind, never on error strings.
type Kind int

const (
	// KindUnknown is the zero value; errors without a ledger kind map here.
	KindUnknown Kind = iota
	// KindInvalidInput marks malformed requests. Caller-fixable, never retried.
	KindInvalidInput
	// KindAccountNotFound marks requests against a missing account. Terminal.
	KindAccountNotFound
	// KindInsufficientBalance marks debits the balance cannot cover. Terminal
	// unless the caller changes the amount.
	KindInsufficientBalance
	// KindConcurrencyConflict marks transient races. Retrying the identical
	// request is safe: the idempotency key makes the retry idempotent.
	KindConcurrencyConflict
	// KindStorageUnavailable marks an unreachable backing store.
	KindStorageUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindAccountNotFound:
		return "account_not_found"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindStorageUnavailable:
		return "storage_unavailable"
	default:
		return "unknown"
	}
}

// Retryable reports whether resending the identical request can succeed.
func (k Kind) Retryable() bool {
	return k == KindConcurrencyConflict || k == KindStorageUnavailable
}

// Error carries a failure kind together with a human-readable message and an
// optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two ledger errors by kind alone, so sentinel-style
// comparisons like errors.Is(err, domain.NewError(KindInvalidInput, "")) work
// regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// NewError builds a ledger error of the given kind.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Errorf builds a ledger error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying cause.
func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the ledger kind from err, unwrapping as needed.
// Errors produced outside the ledger core report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
