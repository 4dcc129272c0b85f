package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/venibank/ledgerd/internal/domain"
)

// CreateAccount provisions an account with an opening balance. Creating an
// id that already exists is a no-op and leaves the existing balance alone.
func (p *Processor) CreateAccount(ctx context.Context, accountID string, initialBalance decimal.Decimal) error {
	if strings.TrimSpace(accountID) == "" {
		return domain.NewError(domain.KindInvalidInput, "account id is required")
	}
	if initialBalance.IsNegative() {
		return domain.Errorf(domain.KindInvalidInput,
			"initial balance must not be negative, got %s", initialBalance)
	}
	if err := p.accounts.CreateAccount(ctx, accountID, initialBalance); err != nil {
		return err
	}
	p.log.Info("account created", zap.String("account_id", accountID))
	return nil
}

// GetBalance returns the account with its current balance.
func (p *Processor) GetBalance(ctx context.Context, accountID string) (*domain.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, domain.NewError(domain.KindInvalidInput, "account id is required")
	}
	return p.accounts.GetAccount(ctx, accountID)
}
