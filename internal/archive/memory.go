package archive

import (
	"context"
	"sync"

	"github.com/gambitworks/chessvault/internal/domain"
)

// Result is one archived terminal match.
type Result struct {
	Match   domain.Match
	Outcome string
	Winner  domain.AccountID
	Method  string
}

// PayoutFailure is one failed transfer awaiting reconciliation.
type PayoutFailure struct {
	MatchID domain.MatchID
	Op      string
	Cause   string
}

// Memory is an in-process archive for tests and single-node setups.
type Memory struct {
	mu       sync.Mutex
	results  []Result
	failures []PayoutFailure
}

func NewMemory() *Memory {
	return &Memory{}
}

func (a *Memory) SaveResult(ctx context.Context, m *domain.Match, outcome string, winner domain.AccountID, method string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, Result{Match: *m, Outcome: outcome, Winner: winner, Method: method})
	return nil
}

func (a *Memory) SavePayoutFailure(ctx context.Context, id domain.MatchID, op string, cause error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	a.failures = append(a.failures, PayoutFailure{MatchID: id, Op: op, Cause: msg})
	return nil
}

// Results returns a copy of everything archived so far.
func (a *Memory) Results() []Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Result, len(a.results))
	copy(out, a.results)
	return out
}

// Failures returns a copy of every recorded payout failure.
func (a *Memory) Failures() []PayoutFailure {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]PayoutFailure, len(a.failures))
	copy(out, a.failures)
	return out
}
