package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venibank/ledgerd/internal/domain"
	"github.com/venibank/ledgerd/internal/ledger"
)

func TestClassifyCommitErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			"unique violation is the key guard",
			&pgconn.PgError{Code: "23505", ConstraintName: "transaction_records_pkey"},
			ledger.ErrDuplicateKey,
		},
		{
			"check violation is the balance floor",
			&pgconn.PgError{Code: "23514", ConstraintName: "accounts_balance_check"},
			ledger.ErrBalanceGuard,
		},
		{
			"serialization failure is a conflict",
			&pgconn.PgError{Code: "40001"},
			ledger.ErrCommitConflict,
		},
		{
			"deadlock victim is a conflict",
			&pgconn.PgError{Code: "40P01"},
			ledger.ErrCommitConflict,
		},
		{
			"wrapped pg errors still classify",
			fmt.Errorf("exec insert: %w", &pgconn.PgError{Code: "23505"}),
			ledger.ErrDuplicateKey,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, classifyCommitErr("insert record", tc.err), tc.want)
		})
	}
}

func TestClassifyCommitErr_ForeignKeyIsMissingAccount(t *testing.T) {
	t.Parallel()

	err := classifyCommitErr("insert record",
		&pgconn.PgError{Code: "23503", ConstraintName: "transaction_records_account_id_fkey"})
	assert.Equal(t, domain.KindAccountNotFound, domain.KindOf(err))
}

func TestClassifyCommitErr_UnrelatedErrorsAreStorage(t *testing.T) {
	t.Parallel()

	for _, err := range []error{
		&pgconn.PgError{Code: "42P01"}, // undefined_table
		errors.New("connection reset by peer"),
		context.DeadlineExceeded,
	} {
		got := classifyCommitErr("update balance", err)
		assert.Equal(t, domain.KindStorageUnavailable, domain.KindOf(got), "input: %v", err)
	}
}

func TestStorageErrWrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := storageErr("get account", cause)

	assert.Equal(t, domain.KindStorageUnavailable, domain.KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "get account")
}

func TestEmbeddedMigrationsComplete(t *testing.T) {
	t.Parallel()

	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %s", name)
		}
	}

	// Every up needs its down, and vice versa.
	assert.Equal(t, ups, downs)
	assert.True(t, ups["0001_init"])
}
