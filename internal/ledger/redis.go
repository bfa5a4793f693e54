package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gambitworks/chessvault/internal/domain"
)

type assetMeta struct {
	MinBalance domain.Amount `json:"min_balance"`
}

// RedisLedger keeps asset metadata and account balances in redis. It is the
// stand-in for the host chain's asset ledger when the module runs as its own
// service.
type RedisLedger struct {
	rdb *redis.Client
}

func NewRedisLedger(rdb *redis.Client) *RedisLedger {
	return &RedisLedger{rdb: rdb}
}

func assetKey(a domain.AssetID) string {
	return fmt.Sprintf("ledger:asset:%d", a)
}

func balKey(a domain.AssetID, acct domain.AccountID) string {
	return fmt.Sprintf("ledger:bal:%d:%s", a, acct)
}

// RegisterAsset creates or replaces an asset with its existential minimum.
func (l *RedisLedger) RegisterAsset(ctx context.Context, asset domain.AssetID, minBalance domain.Amount) error {
	raw, err := json.Marshal(assetMeta{MinBalance: minBalance})
	if err != nil {
		return err
	}
	return l.rdb.Set(ctx, assetKey(asset), raw, 0).Err()
}

// Mint credits an account out of thin air. Test and genesis helper.
func (l *RedisLedger) Mint(ctx context.Context, asset domain.AssetID, account domain.AccountID, amount domain.Amount) error {
	return l.rdb.IncrBy(ctx, balKey(asset, account), int64(amount)).Err()
}

func (l *RedisLedger) Exists(ctx context.Context, asset domain.AssetID) (bool, error) {
	n, err := l.rdb.Exists(ctx, assetKey(asset)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisLedger) MinimumBalance(ctx context.Context, asset domain.AssetID) (domain.Amount, error) {
	raw, err := l.rdb.Get(ctx, assetKey(asset)).Bytes()
	if err == redis.Nil {
		return 0, ErrUnknownAsset
	}
	if err != nil {
		return 0, err
	}
	var meta assetMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return 0, err
	}
	return meta.MinBalance, nil
}

func (l *RedisLedger) Balance(ctx context.Context, asset domain.AssetID, account domain.AccountID) (domain.Amount, error) {
	v, err := l.rdb.Get(ctx, balKey(asset, account)).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return domain.Amount(v), nil
}

// Transfer debits and credits under an optimistic WATCH so a concurrent
// balance change aborts the pair instead of overdrawing.
func (l *RedisLedger) Transfer(ctx context.Context, asset domain.AssetID, from, to domain.AccountID, amount domain.Amount) error {
	if amount == 0 || from == to {
		return nil
	}
	fromK := balKey(asset, from)
	toK := balKey(asset, to)
	return l.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, fromK).Uint64()
		if err == redis.Nil {
			cur = 0
		} else if err != nil {
			return err
		}
		if cur < uint64(amount) {
			return ErrInsufficientBalance
		}
		pipe := tx.TxPipeline()
		pipe.DecrBy(ctx, fromK, int64(amount))
		pipe.IncrBy(ctx, toK, int64(amount))
		_, err = pipe.Exec(ctx)
		return err
	}, fromK)
}
