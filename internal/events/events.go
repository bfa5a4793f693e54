// Package events carries the match lifecycle notifications external
// observers and indexers consume. Every emission is logged, appended to a
// redis stream when one is attached, and fanned out to in-process
// subscribers (the websocket feed).
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gambitworks/chessvault/internal/domain"
)

type Kind string

const (
	MatchCreated        Kind = "match_created"
	MatchAborted        Kind = "match_aborted"
	MatchStarted        Kind = "match_started"
	MoveExecuted        Kind = "move_executed"
	MatchWon            Kind = "match_won"
	MatchDrawn          Kind = "match_drawn"
	MatchRefundError    Kind = "match_refund_error"
	MatchAwardError     Kind = "match_award_error"
	MatchClearanceError Kind = "match_clearance_error"
)

// StreamKey is the redis stream events are appended to for indexers.
const StreamKey = "chess:events"

// Event is one lifecycle notification. Fields beyond Kind and MatchID are
// populated per kind; payout-failure kinds carry the cause in Reason and
// never imply a state rollback.
type Event struct {
	ID         string           `json:"id"`
	Kind       Kind             `json:"kind"`
	MatchID    domain.MatchID   `json:"match_id,omitempty"`
	Challenger domain.AccountID `json:"challenger,omitempty"`
	Opponent   domain.AccountID `json:"opponent,omitempty"`
	By         domain.AccountID `json:"by,omitempty"`
	Move       string           `json:"move,omitempty"`
	Board      string           `json:"board,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

type Emitter struct {
	log *zap.Logger
	rdb *redis.Client

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewEmitter(log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{log: log, subs: make(map[chan Event]struct{})}
}

// AttachStream wires a redis client so events are also appended to StreamKey.
func (e *Emitter) AttachStream(rdb *redis.Client) {
	if e != nil {
		e.rdb = rdb
	}
}

// Emit publishes one event. Sink failures are logged and swallowed; emission
// must never fail an operation that already committed.
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	e.log.Info(string(ev.Kind),
		zap.String("event_id", ev.ID),
		zap.String("match_id", string(ev.MatchID)),
		zap.String("challenger", string(ev.Challenger)),
		zap.String("opponent", string(ev.Opponent)),
		zap.String("by", string(ev.By)),
		zap.String("move", ev.Move),
		zap.String("board", ev.Board),
		zap.String("reason", ev.Reason),
	)

	if e.rdb != nil {
		values := map[string]interface{}{
			"id":    ev.ID,
			"kind":  string(ev.Kind),
			"match": string(ev.MatchID),
		}
		if ev.By != "" {
			values["by"] = string(ev.By)
		}
		if ev.Move != "" {
			values["move"] = ev.Move
		}
		if ev.Board != "" {
			values["board"] = ev.Board
		}
		if ev.Reason != "" {
			values["reason"] = ev.Reason
		}
		if err := e.rdb.XAdd(ctx, &redis.XAddArgs{Stream: StreamKey, Values: values}).Err(); err != nil {
			e.log.Warn("event_stream_append_failed", zap.String("event_id", ev.ID), zap.Error(err))
		}
	}

	e.mu.Lock()
	for ch := range e.subs {
		select {
		case ch <- ev:
		default: // slow subscriber drops
		}
	}
	e.mu.Unlock()
}

// Subscribe registers an in-process listener. The returned cancel must be
// called to release the channel.
func (e *Emitter) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount reports how many in-process listeners are registered.
func (e *Emitter) SubscriberCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}
