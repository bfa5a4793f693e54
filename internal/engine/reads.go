package engine

import (
	"context"

	"github.com/gambitworks/chessvault/internal/domain"
)

// GetMatch returns a live match record.
func (e *Engine) GetMatch(ctx context.Context, id domain.MatchID) (*domain.Match, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getMatch(ctx, id)
}

// MatchIDFromNonce resolves a creation nonce to its identifier.
func (e *Engine) MatchIDFromNonce(ctx context.Context, nonce uint64) (domain.MatchID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.reg.IDFromNonce(ctx, nonce)
	if err != nil {
		return "", ErrNonExistentMatch
	}
	return id, nil
}

// PlayerMatches lists the live matches an account participates in.
func (e *Engine) PlayerMatches(ctx context.Context, account domain.AccountID) ([]domain.MatchID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.PlayerMatches(ctx, account)
}

// Rating returns the account's Elo rating, falling back to the configured
// initial value.
func (e *Engine) Rating(ctx context.Context, account domain.AccountID) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ratings.Get(ctx, account, e.cfg.EloInitial)
}

// IncentivePreview returns the janitor/winner split a third-party clearance
// would pay right now. Callers use it to price a cleanup before the
// abandonment threshold is crossed.
func (e *Engine) IncentivePreview(ctx context.Context, id domain.MatchID) (incentive, remainder domain.Amount, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.getMatch(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	incentive, remainder = m.JanitorIncentive(e.cfg.IncentiveShare)
	return incentive, remainder, nil
}
