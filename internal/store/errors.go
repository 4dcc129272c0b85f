package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/venibank/ledgerd/internal/domain"
	"github.com/venibank/ledgerd/internal/ledger"
)

const (
	codeUniqueViolation  = "23505"
	codeForeignKey       = "23503"
	codeCheckViolation   = "23514"
	codeSerialization    = "40001"
	codeDeadlockDetected = "40P01"
)

// classifyCommitErr maps engine-level rejections of the commit unit onto the
// processor's guard sentinels. Inputs are validated before the unit runs, so
// the unique violation can only come from the record's primary key, the
// foreign key from the record referencing a missing account, and the check
// violation from the balance floor constraint.
func classifyCommitErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return ledger.ErrDuplicateKey
		case codeForeignKey:
			return domain.WrapError(domain.KindAccountNotFound, "account no longer exists", err)
		case codeCheckViolation:
			return ledger.ErrBalanceGuard
		case codeSerialization, codeDeadlockDetected:
			return ledger.ErrCommitConflict
		}
	}
	return storageErr(op, err)
}

// storageErr wraps a failure to reach or use the backing store.
func storageErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.KindStorageUnavailable, "store: "+op+" interrupted", err)
	}
	return domain.WrapError(domain.KindStorageUnavailable, "store: "+op, err)
}
