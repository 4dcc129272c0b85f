package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/venibank/ledgerd/internal/domain"
)

// parseApplyInput validates the raw transaction fields before any storage
// work happens. Every failure is KindInvalidInput.
func parseApplyInput(idempotencyKey, accountID, amount, direction string) (decimal.Decimal, domain.Direction, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		return decimal.Zero, "", domain.NewError(domain.KindInvalidInput, "idempotency key is required")
	}
	if strings.TrimSpace(accountID) == "" {
		return decimal.Zero, "", domain.NewError(domain.KindInvalidInput, "account id is required")
	}

	dir := domain.Direction(direction)
	if !dir.Valid() {
		return decimal.Zero, "", domain.Errorf(domain.KindInvalidInput,
			"direction must be %q or %q", domain.DirectionCredit, domain.DirectionDebit)
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, "", domain.Errorf(domain.KindInvalidInput,
			"amount %q is not a decimal number", amount)
	}
	if !amt.IsPositive() {
		return decimal.Zero, "", domain.Errorf(domain.KindInvalidInput,
			"amount must be positive, got %s", amt)
	}
	return amt, dir, nil
}
