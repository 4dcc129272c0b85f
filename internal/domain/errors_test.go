package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindInvalidInput, "invalid_input"},
		{KindAccountNotFound, "account_not_found"},
		{KindInsufficientBalance, "insufficient_balance"},
		{KindConcurrencyConflict, "concurrency_conflict"},
		{KindStorageUnavailable, "storage_unavailable"},
		{Kind(99), "unknown"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.kind.String())
	}
}

func TestKindRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, KindConcurrencyConflict.Retryable())
	assert.True(t, KindStorageUnavailable.Retryable())
	assert.False(t, KindInvalidInput.Retryable())
	assert.False(t, KindAccountNotFound.Retryable())
	assert.False(t, KindInsufficientBalance.Retryable())
}

func TestErrorIs_MatchesByKindOnly(t *testing.T) {
	t.Parallel()

	err := Errorf(KindInsufficientBalance, "balance %s cannot cover debit of %s", "10", "25")

	assert.True(t, errors.Is(err, NewError(KindInsufficientBalance, "")))
	assert.False(t, errors.Is(err, NewError(KindAccountNotFound, "")))
	assert.False(t, errors.Is(err, errors.New("insufficient balance")))
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := WrapError(KindStorageUnavailable, "store: get account", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "store: get account")
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", NewError(KindAccountNotFound, "account x not found"), KindAccountNotFound},
		{"wrapped in fmt", fmt.Errorf("handler: %w", NewError(KindInvalidInput, "bad amount")), KindInvalidInput},
		{"foreign error", errors.New("boom"), KindUnknown},
		{"nil-ish wrap chain", WrapError(KindStorageUnavailable, "outer", errors.New("inner")), KindStorageUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestKindOf_PrefersOutermostKind(t *testing.T) {
	t.Parallel()

	inner := NewError(KindInsufficientBalance, "floor")
	outer := WrapError(KindConcurrencyConflict, "commit aborted", inner)

	require.Equal(t, KindConcurrencyConflict, KindOf(outer))
}
