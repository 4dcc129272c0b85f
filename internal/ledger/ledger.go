// Package ledger implements the transaction-processing core: idempotent
// credit/debit application against single accounts, with conflict resolution
// for concurrent requests. All coordination is delegated to the atomic commit
// unit of the backing store; the processor itself is stateless and holds no
// locks across storage calls.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/venibank/ledgerd/internal/domain"
)

// AccountStore is the account persistence contract the processor consumes.
// GetAccount reports a KindAccountNotFound error for missing ids.
// CreateAccount is insert-if-absent: re-creating an id leaves the original
// account untouched.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	CreateAccount(ctx context.Context, id string, initialBalance decimal.Decimal) error
}

// LedgerStore is the transaction-record lookup contract. Absence of a record
// is ordinary control flow and comes back as (nil, nil).
type LedgerStore interface {
	GetTransactionRecord(ctx context.Context, idempotencyKey string) (*domain.TransactionRecord, error)
}

// AtomicCommitter executes the guarded pair of one transaction as a single
// all-or-nothing unit: the record insert, guarded by key absence, and the
// balance update, guarded by the non-negative floor. Guard failures must
// surface distinguishably through the sentinels below, with the key guard
// taking precedence when both would fail. On success the implementation
// updates rec.ResultingBalance to the balance the commit actually produced.
type AtomicCommitter interface {
	Commit(ctx context.Context, rec *domain.TransactionRecord, delta decimal.Decimal) error
}

// Guard rejections an AtomicCommitter reports. Each one is resolved by the
// processor with a deterministic re-read; none escapes to callers.
var (
	// ErrDuplicateKey: a record for the idempotency key already exists.
	ErrDuplicateKey = errors.New("idempotency key already recorded")

	// ErrBalanceGuard: applying the delta would have driven the balance
	// negative.
	ErrBalanceGuard = errors.New("balance floor rejected the update")

	// ErrCommitConflict: the unit was aborted for a reason unrelated to
	// either guard, such as a serialization failure. Retryable.
	ErrCommitConflict = errors.New("commit aborted by a concurrent transaction")
)

// ReplayCache holds committed transaction records for fast idempotency
// probes. Records are immutable, so cached copies never go stale; balances
// are never cached. A degraded cache only costs the fast path: the processor
// logs cache errors and falls back to the ledger store.
type ReplayCache interface {
	GetRecord(ctx context.Context, idempotencyKey string) (*domain.TransactionRecord, error)
	PutRecord(ctx context.Context, rec *domain.TransactionRecord) error
}

// Result is the outcome of ApplyTransaction. Replayed marks outcomes served
// from a previously committed record instead of a fresh commit; callers must
// treat both as success.
type Result struct {
	TransactionID string
	NewBalance    decimal.Decimal
	Replayed      bool
}

// balanceRetries bounds how often a commit rejected by the balance floor is
// reattempted after the balance moved favorably in the meantime.
const balanceRetries = 1

// Processor orchestrates transaction application. It is reentrant: any
// number of ApplyTransaction calls may run concurrently, including calls
// carrying the same idempotency key.
type Processor struct {
	accounts  AccountStore
	records   LedgerStore
	committer AtomicCommitter
	cache     ReplayCache
	log       *zap.Logger
}

// New wires a processor. cache may be nil to disable replay caching; logger
// may be nil.
func New(accounts AccountStore, records LedgerStore, committer AtomicCommitter, cache ReplayCache, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		accounts:  accounts,
		records:   records,
		committer: committer,
		cache:     cache,
		log:       logger,
	}
}

// ApplyTransaction applies one credit or debit to an account, exactly once
// per idempotency key. amount is the decimal string magnitude; direction is
// "credit" or "debit". Resubmitting a key replays the recorded outcome with
// Replayed set, alongside the account's current balance.
func (p *Processor) ApplyTransaction(ctx context.Context, idempotencyKey, accountID, amount, direction string) (*Result, error) {
	amt, dir, err := parseApplyInput(idempotencyKey, accountID, amount, direction)
	if err != nil {
		return nil, err
	}

	// 1. Idempotency probe: a key that already committed replays its
	// outcome without touching the account.
	rec, err := p.lookupRecord(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return p.replay(ctx, rec)
	}

	delta := dir.Delta(amt)

	for attempt := 0; ; attempt++ {
		// 2. Account lookup.
		acct, err := p.accounts.GetAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}

		// 3. Optimistic projection. The authoritative check is the
		// commit's balance guard; this only rejects requests that
		// cannot succeed against the balance just read.
		projected := acct.Balance.Add(delta)
		if projected.IsNegative() {
			return nil, domain.Errorf(domain.KindInsufficientBalance,
				"balance %s cannot cover %s of %s", acct.Balance, dir, amt)
		}

		// 4. Commit the guarded pair under a fresh transaction id.
		rec := &domain.TransactionRecord{
			IdempotencyKey:   idempotencyKey,
			TransactionID:    newTransactionID(),
			AccountID:        accountID,
			Amount:           amt,
			Direction:        dir,
			ResultingBalance: projected,
			CreatedAt:        time.Now().UTC(),
		}
		err = p.committer.Commit(ctx, rec, delta)
		if err == nil {
			p.cachePut(ctx, rec)

			// 5. Report the current balance: commits from other
			// requests may already have landed after ours.
			acct, err := p.accounts.GetAccount(ctx, accountID)
			if err != nil {
				return nil, err
			}
			return &Result{TransactionID: rec.TransactionID, NewBalance: acct.Balance}, nil
		}

		// 6. Resolve the rejection by cause.
		switch {
		case errors.Is(err, ErrDuplicateKey):
			return p.resolveDuplicate(ctx, idempotencyKey)

		case errors.Is(err, ErrBalanceGuard):
			acct, rerr := p.accounts.GetAccount(ctx, accountID)
			if rerr != nil {
				return nil, rerr
			}
			if acct.Balance.Add(delta).IsNegative() {
				return nil, domain.Errorf(domain.KindInsufficientBalance,
					"balance %s cannot cover %s of %s", acct.Balance, dir, amt)
			}
			// The balance moved favorably between our read and the
			// guard's rejection; the projection holds again.
			if attempt < balanceRetries {
				p.log.Debug("balance guard rejected commit, retrying",
					zap.String("idempotency_key", idempotencyKey),
					zap.String("account_id", accountID))
				continue
			}
			return nil, domain.NewError(domain.KindConcurrencyConflict,
				"balance kept moving during commit, retries exhausted")

		case errors.Is(err, ErrCommitConflict):
			return nil, domain.WrapError(domain.KindConcurrencyConflict,
				"commit unit aborted", err)

		default:
			// KindAccountNotFound and KindStorageUnavailable pass
			// through untranslated.
			return nil, err
		}
	}
}

// resolveDuplicate handles losing the race for an idempotency key between
// the probe and the commit: the winner's record is the authoritative
// outcome.
func (p *Processor) resolveDuplicate(ctx context.Context, idempotencyKey string) (*Result, error) {
	rec, err := p.records.GetTransactionRecord(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// The key guard fired yet no record is visible. The store's
		// atomicity rules this out for committed writers, so the
		// winner must still be in flight or rolled back.
		return nil, domain.NewError(domain.KindConcurrencyConflict,
			"idempotency key contended but no record visible yet")
	}
	p.log.Debug("lost idempotency race, replaying winner's outcome",
		zap.String("idempotency_key", idempotencyKey),
		zap.String("transaction_id", rec.TransactionID))
	p.cachePut(ctx, rec)
	return p.replay(ctx, rec)
}

// replay serves a committed record. The reported balance is the account's
// balance as of now, re-read from the account store: transactions that
// committed after the record may have moved it past the record's own
// resulting-balance snapshot.
func (p *Processor) replay(ctx context.Context, rec *domain.TransactionRecord) (*Result, error) {
	acct, err := p.accounts.GetAccount(ctx, rec.AccountID)
	if err != nil {
		return nil, err
	}
	return &Result{TransactionID: rec.TransactionID, NewBalance: acct.Balance, Replayed: true}, nil
}

// lookupRecord probes cache first, then the ledger store, warming the cache
// on a store hit.
func (p *Processor) lookupRecord(ctx context.Context, idempotencyKey string) (*domain.TransactionRecord, error) {
	if p.cache != nil {
		rec, err := p.cache.GetRecord(ctx, idempotencyKey)
		if err != nil {
			p.log.Warn("replay cache read failed, falling back to store",
				zap.String("idempotency_key", idempotencyKey), zap.Error(err))
		} else if rec != nil {
			return rec, nil
		}
	}

	rec, err := p.records.GetTransactionRecord(ctx, idempotencyKey)
	if err != nil || rec == nil {
		return nil, err
	}
	p.cachePut(ctx, rec)
	return rec, nil
}

func (p *Processor) cachePut(ctx context.Context, rec *domain.TransactionRecord) {
	if p.cache == nil {
		return
	}
	if err := p.cache.PutRecord(ctx, rec); err != nil {
		p.log.Warn("replay cache write failed",
			zap.String("idempotency_key", rec.IdempotencyKey), zap.Error(err))
	}
}

// newTransactionID returns a ULID: millisecond timestamp plus random
// suffix, unique with overwhelming probability and sortable by issue time.
func newTransactionID() string {
	return ulid.Make().String()
}
