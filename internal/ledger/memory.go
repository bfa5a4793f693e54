package ledger

import (
	"context"
	"sync"

	"github.com/gambitworks/chessvault/internal/domain"
)

// MemoryLedger is an in-process ledger used by tests and by development runs
// without redis.
type MemoryLedger struct {
	mu       sync.Mutex
	minimums map[domain.AssetID]domain.Amount
	balances map[domain.AssetID]map[domain.AccountID]domain.Amount
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		minimums: make(map[domain.AssetID]domain.Amount),
		balances: make(map[domain.AssetID]map[domain.AccountID]domain.Amount),
	}
}

func (l *MemoryLedger) RegisterAsset(_ context.Context, asset domain.AssetID, minBalance domain.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minimums[asset] = minBalance
	if l.balances[asset] == nil {
		l.balances[asset] = make(map[domain.AccountID]domain.Amount)
	}
	return nil
}

func (l *MemoryLedger) Mint(_ context.Context, asset domain.AssetID, account domain.AccountID, amount domain.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[asset] == nil {
		l.balances[asset] = make(map[domain.AccountID]domain.Amount)
	}
	l.balances[asset][account] += amount
	return nil
}

func (l *MemoryLedger) Exists(_ context.Context, asset domain.AssetID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.minimums[asset]
	return ok, nil
}

func (l *MemoryLedger) MinimumBalance(_ context.Context, asset domain.AssetID) (domain.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	min, ok := l.minimums[asset]
	if !ok {
		return 0, ErrUnknownAsset
	}
	return min, nil
}

func (l *MemoryLedger) Balance(_ context.Context, asset domain.AssetID, account domain.AccountID) (domain.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[asset][account], nil
}

func (l *MemoryLedger) Transfer(_ context.Context, asset domain.AssetID, from, to domain.AccountID, amount domain.Amount) error {
	if amount == 0 || from == to {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[asset] == nil {
		l.balances[asset] = make(map[domain.AccountID]domain.Amount)
	}
	if l.balances[asset][from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[asset][from] -= amount
	l.balances[asset][to] += amount
	return nil
}
