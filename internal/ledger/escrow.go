package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/gambitworks/chessvault/internal/domain"
)

var (
	ErrBetDoesNotExist = errors.New("bet asset does not exist")
	ErrBetTooLow       = errors.New("bet amount too low")
)

// Escrow holds stakes in a custody account and pays them back out at
// settlement. All transfer failures from the underlying ledger are surfaced
// verbatim; the engine decides what is fatal.
type Escrow struct {
	ledger  Ledger
	custody domain.AccountID
}

func NewEscrow(l Ledger, custody domain.AccountID) *Escrow {
	return &Escrow{ledger: l, custody: custody}
}

// Custody returns the module's custody account.
func (e *Escrow) Custody() domain.AccountID { return e.custody }

// ValidateBet checks a stake without moving funds. It fails with
// ErrBetDoesNotExist for an unregistered asset, and with ErrBetTooLow when
// either the stake or the janitor incentive share of the prize pool would
// fall below the asset's minimum balance.
func (e *Escrow) ValidateBet(ctx context.Context, asset domain.AssetID, amount domain.Amount, incentiveShare uint8) error {
	ok, err := e.ledger.Exists(ctx, asset)
	if err != nil {
		return fmt.Errorf("asset lookup: %w", err)
	}
	if !ok {
		return ErrBetDoesNotExist
	}
	min, err := e.ledger.MinimumBalance(ctx, asset)
	if err != nil {
		return fmt.Errorf("minimum balance lookup: %w", err)
	}
	if amount < min {
		return ErrBetTooLow
	}
	pot := 2 * amount
	if pot*domain.Amount(incentiveShare)/100 < min {
		return ErrBetTooLow
	}
	return nil
}

// TransferIn moves a player's stake into custody after revalidating it.
func (e *Escrow) TransferIn(ctx context.Context, asset domain.AssetID, payer domain.AccountID, amount domain.Amount, incentiveShare uint8) error {
	if err := e.ValidateBet(ctx, asset, amount, incentiveShare); err != nil {
		return err
	}
	return e.ledger.Transfer(ctx, asset, payer, e.custody, amount)
}

// ReleaseTo returns custody funds to a payee.
func (e *Escrow) ReleaseTo(ctx context.Context, asset domain.AssetID, payee domain.AccountID, amount domain.Amount) error {
	return e.ledger.Transfer(ctx, asset, e.custody, payee, amount)
}

// SplitOnWin pays the full pot to the winner.
func (e *Escrow) SplitOnWin(ctx context.Context, asset domain.AssetID, winner domain.AccountID, pot domain.Amount) error {
	return e.ReleaseTo(ctx, asset, winner, pot)
}

// SplitOnDraw refunds each player's stake.
func (e *Escrow) SplitOnDraw(ctx context.Context, asset domain.AssetID, challenger, opponent domain.AccountID, each domain.Amount) error {
	if err := e.ReleaseTo(ctx, asset, challenger, each); err != nil {
		return err
	}
	return e.ReleaseTo(ctx, asset, opponent, each)
}

// SplitWithIncentive pays the janitor its share and the winner the rest.
func (e *Escrow) SplitWithIncentive(ctx context.Context, asset domain.AssetID, winner, janitor domain.AccountID, winnerAmount, janitorAmount domain.Amount) error {
	if err := e.ReleaseTo(ctx, asset, janitor, janitorAmount); err != nil {
		return err
	}
	return e.ReleaseTo(ctx, asset, winner, winnerAmount)
}
