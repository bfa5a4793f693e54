// Package engine implements the match lifecycle state machine: it validates
// every transition, keeps the clocks, and drives escrow settlement. The host
// executes operations strictly serialized; the engine-level mutex provides
// that guarantee when the module runs as its own service.
package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/gambitworks/chessvault/internal/boardcodec"
	"github.com/gambitworks/chessvault/internal/domain"
	"github.com/gambitworks/chessvault/internal/events"
	"github.com/gambitworks/chessvault/internal/ledger"
	"github.com/gambitworks/chessvault/internal/obslog"
	"github.com/gambitworks/chessvault/internal/rating"
	"github.com/gambitworks/chessvault/internal/registry"
)

// Multipliers over a style's per-move budget.
const (
	// AbandonMultiplier gates the third-party janitor incentive.
	AbandonMultiplier = 10
	// NoShowMultiplier gates the sweep's draw-by-no-show when no move was
	// ever played.
	NoShowMultiplier = 100
)

// Config carries the tunables of the state machine.
type Config struct {
	Periods        domain.Periods
	IncentiveShare uint8
	EloK           float64
	EloInitial     int
}

// Archive receives terminal results and payout failures for out-of-band
// reconciliation. Optional; a nil archive disables it.
type Archive interface {
	SaveResult(ctx context.Context, m *domain.Match, outcome string, winner domain.AccountID, method string) error
	SavePayoutFailure(ctx context.Context, id domain.MatchID, op string, cause error) error
}

type Engine struct {
	mu sync.Mutex

	reg     *registry.Registry
	escrow  *ledger.Escrow
	ratings rating.Store
	emit    *events.Emitter
	archive Archive
	cfg     Config
	now     func() domain.BlockNumber
}

// New wires the state machine. now supplies the host's current block height
// and is read fresh at the start of every operation.
func New(reg *registry.Registry, escrow *ledger.Escrow, ratings rating.Store, emit *events.Emitter, cfg Config, now func() domain.BlockNumber) *Engine {
	if emit == nil {
		emit = events.NewEmitter(nil)
	}
	return &Engine{
		reg:     reg,
		escrow:  escrow,
		ratings: ratings,
		emit:    emit,
		cfg:     cfg,
		now:     now,
	}
}

// AttachArchive wires the optional results archive.
func (e *Engine) AttachArchive(a Archive) {
	if e != nil {
		e.archive = a
	}
}

// CreateMatch escrows the challenger's stake and registers a new match
// awaiting its opponent.
func (e *Engine) CreateMatch(ctx context.Context, challenger, opponent domain.AccountID, style domain.MatchStyle, asset domain.AssetID, amount domain.Amount) (*domain.Match, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if challenger == opponent {
		return nil, ErrInvalidOpponent
	}

	// reject unfunded bets before touching the nonce counter so failed
	// creates leave no state behind
	if err := e.escrow.ValidateBet(ctx, asset, amount, e.cfg.IncentiveShare); err != nil {
		return nil, err
	}

	nonce, err := e.reg.NextNonce(ctx)
	if err != nil {
		return nil, err
	}

	if err := e.escrow.TransferIn(ctx, asset, challenger, amount, e.cfg.IncentiveShare); err != nil {
		return nil, err
	}

	m := &domain.Match{
		ID:         domain.ComputeMatchID(challenger, opponent, nonce),
		Challenger: challenger,
		Opponent:   opponent,
		Board:      boardcodec.InitialPosition(),
		State:      domain.AwaitingOpponent(),
		Nonce:      nonce,
		Style:      style,
		Start:      domain.SentinelBlock,
		LastMove:   domain.SentinelBlock,
		BetAssetID: asset,
		BetAmount:  amount,
	}
	if err := e.reg.Insert(ctx, m); err != nil {
		return nil, err
	}

	e.emit.Emit(ctx, events.Event{
		Kind:       events.MatchCreated,
		MatchID:    m.ID,
		Challenger: challenger,
		Opponent:   opponent,
	})
	return m, nil
}

// AbortMatch refunds the challenger and deletes a match nobody joined.
// Only the challenger may abort, and only while awaiting the opponent.
func (e *Engine) AbortMatch(ctx context.Context, caller domain.AccountID, id domain.MatchID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.getMatch(ctx, id)
	if err != nil {
		return err
	}
	if !m.State.IsAwaiting() {
		return ErrNotAwaitingOpponent
	}
	if caller != m.Challenger {
		return ErrNotMatchChallenger
	}

	if err := e.escrow.ReleaseTo(ctx, m.BetAssetID, m.Challenger, m.BetAmount); err != nil {
		e.reportPayoutFailure(ctx, m.ID, events.MatchRefundError, "abort_refund", err)
	}
	if err := e.reg.Remove(ctx, m); err != nil {
		return err
	}
	e.emit.Emit(ctx, events.Event{Kind: events.MatchAborted, MatchID: m.ID, By: caller})
	return nil
}

// JoinMatch escrows the opponent's stake and starts the clock. Whites (the
// challenger) are to move first.
func (e *Engine) JoinMatch(ctx context.Context, caller domain.AccountID, id domain.MatchID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.getMatch(ctx, id)
	if err != nil {
		return err
	}
	if !m.State.IsAwaiting() {
		return ErrNotAwaitingOpponent
	}
	if caller != m.Opponent {
		return ErrNotMatchOpponent
	}

	if err := e.escrow.TransferIn(ctx, m.BetAssetID, m.Opponent, m.BetAmount, e.cfg.IncentiveShare); err != nil {
		return err
	}

	m.State = domain.OnGoing(domain.Whites)
	m.Start = e.now()
	if err := e.reg.Update(ctx, m); err != nil {
		return err
	}

	e.emit.Emit(ctx, events.Event{
		Kind:       events.MatchStarted,
		MatchID:    m.ID,
		Challenger: m.Challenger,
		Opponent:   m.Opponent,
		By:         caller,
	})
	return nil
}

// MakeMove validates and applies one move for the side to move, updating the
// clock and settling the match when the move ends it.
func (e *Engine) MakeMove(ctx context.Context, caller domain.AccountID, id domain.MatchID, move string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	uci, err := boardcodec.ParseMove(move)
	if err != nil {
		return err
	}

	m, err := e.getMatch(ctx, id)
	if err != nil {
		return err
	}

	switch m.State.Kind {
	case domain.KindAwaitingOpponent:
		return ErrStillAwaitingOpponent
	case domain.KindWon, domain.KindDrawn:
		// terminal matches are deleted on settlement, so this state is not
		// reachable from storage; kept for an exhaustive transition table
		return ErrMatchAlreadyFinished
	case domain.KindOnGoing:
	default:
		return fmt.Errorf("corrupt match state %q", m.State.Kind)
	}

	if caller != m.AccountOf(m.State.Turn) {
		return ErrNotYourTurn
	}

	pos, err := boardcodec.Decode(m.Board)
	if err != nil {
		return err
	}
	mv, ok := pos.DecodeMove(uci)
	if !ok {
		return ErrIllegalMove
	}
	pos.ApplyUnchecked(mv)

	// emitted only once the move's effects are durable
	moveEv := events.Event{Kind: events.MoveExecuted, MatchID: m.ID, By: caller, Move: uci}

	st := pos.Status()
	m.Board = pos.FEN()
	switch st.Kind {
	case boardcodec.StatusOngoing:
		m.State = domain.OnGoing(st.SideToMove)
		m.LastMove = e.now()
		if err := e.reg.Update(ctx, m); err != nil {
			return err
		}
		e.emit.Emit(ctx, moveEv)
		return nil
	case boardcodec.StatusWon:
		// the mover delivered mate
		loser := m.AccountOf(m.State.Turn.Other())
		return e.settleWin(ctx, m, caller, loser, m.Board, events.MatchAwardError, "checkmate", false, "", moveEv)
	case boardcodec.StatusDrawn:
		return e.settleDraw(ctx, m, m.Board, "drawn_position", moveEv)
	}
	return fmt.Errorf("unexpected board status %q", st.Kind)
}

// ClearAbandonedMatch declares the non-moving side winner of a match whose
// side to move let the per-move budget lapse. Players (and anyone acting
// before the abandonment threshold) trigger a full-pot award; a disinterested
// third party acting after the threshold keeps the janitor incentive.
func (e *Engine) ClearAbandonedMatch(ctx context.Context, caller domain.AccountID, id domain.MatchID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.getMatch(ctx, id)
	if err != nil {
		return err
	}
	if !m.State.IsOnGoing() {
		return ErrMatchNotOnGoing
	}

	now := e.now()
	ref := m.LastMove
	if ref == domain.SentinelBlock {
		ref = m.Start
	}
	budget := e.cfg.Periods.For(m.Style)
	if now-ref <= budget {
		return ErrMoveNotExpired
	}

	winner := m.AccountOf(m.State.Turn.Other())
	loser := m.AccountOf(m.State.Turn)
	abandoned := now-ref > AbandonMultiplier*budget

	if !m.HasPlayer(caller) && abandoned {
		return e.settleWin(ctx, m, winner, loser, m.Board, events.MatchClearanceError, "abandoned", true, caller)
	}
	return e.settleWin(ctx, m, winner, loser, m.Board, events.MatchClearanceError, "timeout", false, "")
}

// getMatch translates registry misses into the module's not-found error.
func (e *Engine) getMatch(ctx context.Context, id domain.MatchID) (*domain.Match, error) {
	m, err := e.reg.Get(ctx, id)
	if err == registry.ErrNotFound {
		return nil, ErrNonExistentMatch
	}
	return m, err
}

// settleWin pays out the pot, updates ratings, deletes the match, and emits
// the terminal event, preceded by any events of the triggering operation.
// When janitor is set, the caller keeps the incentive share. A failed payout
// is reported and never blocks deletion.
func (e *Engine) settleWin(ctx context.Context, m *domain.Match, winner, loser domain.AccountID, board string, failKind events.Kind, method string, withIncentive bool, janitor domain.AccountID, prior ...events.Event) error {
	if withIncentive {
		incentive, remainder := m.JanitorIncentive(e.cfg.IncentiveShare)
		if err := e.escrow.SplitWithIncentive(ctx, m.BetAssetID, winner, janitor, remainder, incentive); err != nil {
			e.reportPayoutFailure(ctx, m.ID, failKind, method, err)
		}
	} else {
		if err := e.escrow.SplitOnWin(ctx, m.BetAssetID, winner, m.Pot()); err != nil {
			e.reportPayoutFailure(ctx, m.ID, failKind, method, err)
		}
	}

	e.updateRatings(ctx, winner, loser, rating.ScoreWin, rating.ScoreLoss)

	if err := e.reg.Remove(ctx, m); err != nil {
		return err
	}
	for _, ev := range prior {
		e.emit.Emit(ctx, ev)
	}
	e.emit.Emit(ctx, events.Event{Kind: events.MatchWon, MatchID: m.ID, By: winner, Board: board})
	e.archiveResult(ctx, m, "won", winner, method)
	return nil
}

// settleDraw refunds both stakes, updates ratings half-half, deletes the
// match, and emits the terminal event after any events of the triggering
// operation.
func (e *Engine) settleDraw(ctx context.Context, m *domain.Match, board, method string, prior ...events.Event) error {
	if err := e.escrow.SplitOnDraw(ctx, m.BetAssetID, m.Challenger, m.Opponent, m.BetAmount); err != nil {
		e.reportPayoutFailure(ctx, m.ID, events.MatchRefundError, method, err)
	}

	e.updateRatings(ctx, m.Challenger, m.Opponent, rating.ScoreDraw, rating.ScoreDraw)

	if err := e.reg.Remove(ctx, m); err != nil {
		return err
	}
	for _, ev := range prior {
		e.emit.Emit(ctx, ev)
	}
	e.emit.Emit(ctx, events.Event{Kind: events.MatchDrawn, MatchID: m.ID, Board: board})
	e.archiveResult(ctx, m, "drawn", "", method)
	return nil
}

func (e *Engine) updateRatings(ctx context.Context, a, b domain.AccountID, scoreA, scoreB float64) {
	ra, err := e.ratings.Get(ctx, a, e.cfg.EloInitial)
	if err != nil {
		obslog.L().Warn("rating_read_failed", zap.String("account", string(a)), zap.Error(err))
		return
	}
	rb, err := e.ratings.Get(ctx, b, e.cfg.EloInitial)
	if err != nil {
		obslog.L().Warn("rating_read_failed", zap.String("account", string(b)), zap.Error(err))
		return
	}
	na, nb := rating.Apply(ra, rb, scoreA, scoreB, e.cfg.EloK)
	if err := e.ratings.Set(ctx, a, na); err != nil {
		obslog.L().Warn("rating_write_failed", zap.String("account", string(a)), zap.Error(err))
	}
	if err := e.ratings.Set(ctx, b, nb); err != nil {
		obslog.L().Warn("rating_write_failed", zap.String("account", string(b)), zap.Error(err))
	}
}

func (e *Engine) reportPayoutFailure(ctx context.Context, id domain.MatchID, kind events.Kind, op string, cause error) {
	e.emit.Emit(ctx, events.Event{Kind: kind, MatchID: id, Reason: cause.Error()})
	if e.archive != nil {
		if err := e.archive.SavePayoutFailure(ctx, id, op, cause); err != nil {
			obslog.L().Error("payout_failure_archive_failed", zap.String("match_id", string(id)), zap.Error(err))
		}
	}
}

func (e *Engine) archiveResult(ctx context.Context, m *domain.Match, outcome string, winner domain.AccountID, method string) {
	if e.archive == nil {
		return
	}
	if err := e.archive.SaveResult(ctx, m, outcome, winner, method); err != nil {
		obslog.L().Error("result_archive_failed", zap.String("match_id", string(m.ID)), zap.Error(err))
	}
}
