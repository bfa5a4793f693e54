package rating

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/gambitworks/chessvault/internal/domain"
)

// Store persists per-account ratings. Ratings are created lazily with the
// process-wide default and never deleted.
type Store interface {
	// Get returns the account's rating, or def when none is stored yet.
	Get(ctx context.Context, account domain.AccountID, def int) (int, error)
	Set(ctx context.Context, account domain.AccountID, rating int) error
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func ratingKey(a domain.AccountID) string { return "chess:rating:" + string(a) }

func (s *RedisStore) Get(ctx context.Context, account domain.AccountID, def int) (int, error) {
	v, err := s.rdb.Get(ctx, ratingKey(account)).Int()
	if err == redis.Nil {
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, account domain.AccountID, rating int) error {
	return s.rdb.Set(ctx, ratingKey(account), rating, 0).Err()
}

// MemoryStore is the in-process fallback used by tests.
type MemoryStore struct {
	mu      sync.Mutex
	ratings map[domain.AccountID]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ratings: make(map[domain.AccountID]int)}
}

func (s *MemoryStore) Get(_ context.Context, account domain.AccountID, def int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.ratings[account]; ok {
		return r, nil
	}
	return def, nil
}

func (s *MemoryStore) Set(_ context.Context, account domain.AccountID, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[account] = rating
	return nil
}
