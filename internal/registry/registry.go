// Package registry owns the durable mapping of match identifiers to match
// records, the monotonic nonce index, and the per-player reverse index.
// Everything lives in the host's key-value store (redis).
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/redis/go-redis/v9"

	"github.com/gambitworks/chessvault/internal/domain"
)

var (
	ErrNotFound      = errors.New("match not found")
	ErrNonceOverflow = errors.New("match nonce overflow")
)

type Registry struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb}
}

func matchKey(id domain.MatchID) string { return "chess:match:" + string(id) }

func nonceIdxKey(nonce uint64) string { return fmt.Sprintf("chess:nonce-idx:%d", nonce) }

func playerKey(a domain.AccountID) string { return "chess:player:" + string(a) }

const (
	nonceKey   = "chess:nonce"
	ongoingKey = "chess:ongoing"
)

// NextNonce allocates the next creation sequence number. The counter never
// wraps: exhaustion surfaces as ErrNonceOverflow once the counter reaches
// the top of redis's signed integer range.
func (r *Registry) NextNonce(ctx context.Context) (uint64, error) {
	v, err := r.rdb.Incr(ctx, nonceKey).Result()
	if err != nil {
		return 0, err
	}
	if v <= 0 || v == math.MaxInt64 {
		return 0, ErrNonceOverflow
	}
	return uint64(v - 1), nil
}

// Insert stores a new match record with its nonce index entry and both
// players' reverse index entries.
func (r *Registry) Insert(ctx context.Context, m *domain.Match) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, matchKey(m.ID), raw, 0)
	pipe.Set(ctx, nonceIdxKey(m.Nonce), string(m.ID), 0)
	pipe.SAdd(ctx, playerKey(m.Challenger), string(m.ID))
	pipe.SAdd(ctx, playerKey(m.Opponent), string(m.ID))
	if m.State.IsOnGoing() {
		pipe.SAdd(ctx, ongoingKey, string(m.ID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Update rewrites a match record and keeps the ongoing set consistent with
// its state.
func (r *Registry) Update(ctx context.Context, m *domain.Match) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, matchKey(m.ID), raw, 0)
	if m.State.IsOnGoing() {
		pipe.SAdd(ctx, ongoingKey, string(m.ID))
	} else {
		pipe.SRem(ctx, ongoingKey, string(m.ID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Get loads a match record.
func (r *Registry) Get(ctx context.Context, id domain.MatchID) (*domain.Match, error) {
	raw, err := r.rdb.Get(ctx, matchKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var m domain.Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// IDFromNonce resolves a creation nonce to its match identifier.
func (r *Registry) IDFromNonce(ctx context.Context, nonce uint64) (domain.MatchID, error) {
	id, err := r.rdb.Get(ctx, nonceIdxKey(nonce)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.MatchID(id), nil
}

// Remove deletes the record, its nonce index entry, and both reverse index
// entries. Terminal matches are deleted, not archived.
func (r *Registry) Remove(ctx context.Context, m *domain.Match) error {
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, matchKey(m.ID))
	pipe.Del(ctx, nonceIdxKey(m.Nonce))
	pipe.SRem(ctx, playerKey(m.Challenger), string(m.ID))
	pipe.SRem(ctx, playerKey(m.Opponent), string(m.ID))
	pipe.SRem(ctx, ongoingKey, string(m.ID))
	_, err := pipe.Exec(ctx)
	return err
}

// PlayerMatches lists the live matches an account participates in.
func (r *Registry) PlayerMatches(ctx context.Context, a domain.AccountID) ([]domain.MatchID, error) {
	raw, err := r.rdb.SMembers(ctx, playerKey(a)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]domain.MatchID, 0, len(raw))
	for _, s := range raw {
		ids = append(ids, domain.MatchID(s))
	}
	return ids, nil
}

// OngoingIDs lists matches currently in the ongoing state, in no particular
// order. The periodic sweep iterates this set only, so a tick costs the
// number of live games, not the keyspace size.
func (r *Registry) OngoingIDs(ctx context.Context) ([]domain.MatchID, error) {
	raw, err := r.rdb.SMembers(ctx, ongoingKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]domain.MatchID, 0, len(raw))
	for _, s := range raw {
		ids = append(ids, domain.MatchID(s))
	}
	return ids, nil
}

// ForceBoardState overwrites a match's board encoding without any legality
// check. Test hook; not reachable through the gateway.
func (r *Registry) ForceBoardState(ctx context.Context, id domain.MatchID, board string) error {
	m, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	m.Board = board
	return r.Update(ctx, m)
}
