package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/gambitworks/chessvault/internal/domain"
	"github.com/gambitworks/chessvault/internal/events"
	"github.com/gambitworks/chessvault/internal/obslog"
)

// Sweep settles every ongoing match whose clock has lapsed. It runs on the
// block-advance tick, with no triggering caller:
//
//   - matches where no move was ever played draw by no-show once elapsed
//     time since start exceeds NoShowMultiplier times the per-move budget;
//     both stakes are refunded and ratings stay untouched,
//   - matches with moves played award the full pot to the non-moving side
//     once the plain per-move budget lapses.
//
// Each match settles independently: a failed payout on one is reported and
// never aborts processing of the rest.
func (e *Engine) Sweep(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, err := e.reg.OngoingIDs(ctx)
	if err != nil {
		obslog.L().Error("sweep_list_failed", zap.Error(err))
		return
	}
	now := e.now()

	for _, id := range ids {
		m, err := e.reg.Get(ctx, id)
		if err != nil {
			obslog.L().Warn("sweep_load_failed", zap.String("match_id", string(id)), zap.Error(err))
			continue
		}
		if !m.State.IsOnGoing() {
			continue
		}
		budget := e.cfg.Periods.For(m.Style)

		if m.LastMove == domain.SentinelBlock {
			if now-m.Start > NoShowMultiplier*budget {
				e.sweepNoShow(ctx, m)
			}
			continue
		}
		if now-m.LastMove > budget {
			e.sweepTimeout(ctx, m)
		}
	}
}

// sweepNoShow refunds both stakes of a match nobody ever moved in. No rating
// update: no game was played.
func (e *Engine) sweepNoShow(ctx context.Context, m *domain.Match) {
	if err := e.escrow.SplitOnDraw(ctx, m.BetAssetID, m.Challenger, m.Opponent, m.BetAmount); err != nil {
		e.reportPayoutFailure(ctx, m.ID, events.MatchRefundError, "no_show_refund", err)
	}
	if err := e.reg.Remove(ctx, m); err != nil {
		obslog.L().Error("sweep_remove_failed", zap.String("match_id", string(m.ID)), zap.Error(err))
		return
	}
	e.emit.Emit(ctx, events.Event{Kind: events.MatchDrawn, MatchID: m.ID, Board: m.Board})
	e.archiveResult(ctx, m, "drawn", "", "no_show")
}

// sweepTimeout awards the pot to the side that was kept waiting.
func (e *Engine) sweepTimeout(ctx context.Context, m *domain.Match) {
	winner := m.AccountOf(m.State.Turn.Other())
	loser := m.AccountOf(m.State.Turn)
	if err := e.settleWin(ctx, m, winner, loser, m.Board, events.MatchAwardError, "timeout_sweep", false, ""); err != nil {
		obslog.L().Error("sweep_settle_failed", zap.String("match_id", string(m.ID)), zap.Error(err))
	}
}
