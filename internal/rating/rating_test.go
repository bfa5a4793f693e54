package rating

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestApplyWin(t *testing.T) {
	w, l := Apply(1200, 1200, ScoreWin, ScoreLoss, 32)
	if w != 1216 || l != 1184 {
		t.Fatalf("equal ratings, win: got %d/%d, want 1216/1184", w, l)
	}
	if w-1200 != 1200-l {
		t.Fatalf("update not zero-sum: %d vs %d", w-1200, 1200-l)
	}
}

func TestApplyDraw(t *testing.T) {
	a, b := Apply(1200, 1200, ScoreDraw, ScoreDraw, 32)
	if a != 1200 || b != 1200 {
		t.Fatalf("equal draw should not move ratings: %d/%d", a, b)
	}

	// the weaker player gains on a draw
	lo, hi := Apply(1000, 1400, ScoreDraw, ScoreDraw, 32)
	if lo <= 1000 || hi >= 1400 {
		t.Fatalf("draw against stronger player: got %d/%d", lo, hi)
	}
}

func TestApplyClampsAtZero(t *testing.T) {
	_, l := Apply(2000, 5, ScoreWin, ScoreLoss, 32)
	if l != 0 {
		t.Fatalf("loser rating = %d, want clamp at 0", l)
	}
}

func TestStores(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	for name, s := range map[string]Store{
		"redis":  NewRedisStore(rdb),
		"memory": NewMemoryStore(),
	} {
		t.Run(name, func(t *testing.T) {
			r, err := s.Get(ctx, "alice", 1500)
			if err != nil || r != 1500 {
				t.Fatalf("default rating: %d, %v", r, err)
			}
			if err := s.Set(ctx, "alice", 1532); err != nil {
				t.Fatalf("Set: %v", err)
			}
			r, err = s.Get(ctx, "alice", 1500)
			if err != nil || r != 1532 {
				t.Fatalf("stored rating: %d, %v", r, err)
			}
		})
	}
}
