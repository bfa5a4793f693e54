// Package archive persists terminal match results and payout failures to
// postgres for out-of-band reconciliation. The registry deletes matches on
// settlement; this is the only durable record of what happened.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/gambitworks/chessvault/internal/domain"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// EnsureSchema creates the archive tables when they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS match_results (
			match_id     TEXT PRIMARY KEY,
			challenger   TEXT NOT NULL,
			opponent     TEXT NOT NULL,
			style        TEXT NOT NULL,
			bet_asset    BIGINT NOT NULL,
			bet_amount   BIGINT NOT NULL,
			outcome      TEXT NOT NULL,
			winner       TEXT NOT NULL DEFAULT '',
			method       TEXT NOT NULL DEFAULT '',
			final_board  TEXT NOT NULL,
			start_block  BIGINT NOT NULL,
			last_block   BIGINT NOT NULL,
			recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS payout_failures (
			id           BIGSERIAL PRIMARY KEY,
			match_id     TEXT NOT NULL,
			op           TEXT NOT NULL,
			cause        TEXT NOT NULL,
			recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	_, err := p.db.ExecContext(ctx, q)
	return err
}

// SaveResult upserts the terminal record of one match.
func (p *Postgres) SaveResult(ctx context.Context, m *domain.Match, outcome string, winner domain.AccountID, method string) error {
	if p == nil || p.db == nil || m == nil {
		return nil
	}
	const q = `INSERT INTO match_results (
			match_id, challenger, opponent, style,
			bet_asset, bet_amount,
			outcome, winner, method, final_board,
			start_block, last_block
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
		) ON CONFLICT (match_id) DO UPDATE SET
			outcome=EXCLUDED.outcome,
			winner=EXCLUDED.winner,
			method=EXCLUDED.method,
			final_board=EXCLUDED.final_board,
			last_block=EXCLUDED.last_block`
	_, err := p.db.ExecContext(ctx, q,
		string(m.ID),
		string(m.Challenger), string(m.Opponent), string(m.Style),
		int64(m.BetAssetID), int64(m.BetAmount),
		outcome, string(winner), strings.TrimSpace(method), m.Board,
		int64(m.Start), int64(m.LastMove),
	)
	return err
}

// SavePayoutFailure appends one failed transfer for later reconciliation.
func (p *Postgres) SavePayoutFailure(ctx context.Context, id domain.MatchID, op string, cause error) error {
	if p == nil || p.db == nil {
		return nil
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	const q = `INSERT INTO payout_failures (match_id, op, cause) VALUES ($1,$2,$3)`
	_, err := p.db.ExecContext(ctx, q, string(id), op, msg)
	return err
}
