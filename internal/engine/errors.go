package engine

import "errors"

// Operation failures, detected before any mutation and returned to the
// caller. Payout failures at settlement are the one exception to this rule:
// they surface as diagnostic events, not as errors, and never block the
// deletion of a decided match.
var (
	ErrNonExistentMatch      = errors.New("match does not exist")
	ErrInvalidOpponent       = errors.New("challenger and opponent must differ")
	ErrNotMatchChallenger    = errors.New("caller is not the match challenger")
	ErrNotAwaitingOpponent   = errors.New("match is not awaiting an opponent")
	ErrNotMatchOpponent      = errors.New("caller is not the designated opponent")
	ErrStillAwaitingOpponent = errors.New("match is still awaiting the opponent")
	ErrMatchAlreadyFinished  = errors.New("match already finished")
	ErrNotYourTurn           = errors.New("not your turn")
	ErrIllegalMove           = errors.New("illegal move")
	ErrMatchNotOnGoing       = errors.New("match is not ongoing")
	ErrMoveNotExpired        = errors.New("move time budget has not expired")
)
