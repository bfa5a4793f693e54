// Package ledger wraps the external asset ledger behind the narrow
// capability surface the match engine needs, and builds the stake escrow
// protocol on top of it.
package ledger

import (
	"context"
	"errors"

	"github.com/gambitworks/chessvault/internal/domain"
)

var (
	ErrUnknownAsset        = errors.New("asset does not exist")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Ledger is the capability interface over the external asset ledger. The
// engine stays backend-agnostic; concrete adapters implement it.
type Ledger interface {
	// Exists reports whether the asset is registered.
	Exists(ctx context.Context, asset domain.AssetID) (bool, error)
	// MinimumBalance returns the asset's existential minimum.
	MinimumBalance(ctx context.Context, asset domain.AssetID) (domain.Amount, error)
	// Transfer moves amount between two accounts, failing with
	// ErrInsufficientBalance when the payer cannot cover it.
	Transfer(ctx context.Context, asset domain.AssetID, from, to domain.AccountID, amount domain.Amount) error
	// Balance returns the free balance of an account.
	Balance(ctx context.Context, asset domain.AssetID, account domain.AccountID) (domain.Amount, error)
}
