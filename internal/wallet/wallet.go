// Package wallet exchanges an external per-user balance for table chips.
package wallet

import (
	"context"
	"errors"
)

var (
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Wallet is the external currency service. Debit only succeeds when the
// balance covers the amount, checked and applied as one step.
type Wallet interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	Debit(ctx context.Context, userID int64, amount int64) (int64, error)
	Credit(ctx context.Context, userID int64, amount int64) (int64, error)
}
