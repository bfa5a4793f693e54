package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// AccountID identifies a ledger account (a signed caller).
type AccountID string

// AssetID identifies an asset class on the ledger.
type AssetID uint32

// Amount is a stake or balance denominated in an asset's smallest unit.
type Amount uint64

// BlockNumber is the host's monotonic logical time unit.
type BlockNumber uint64

// MatchID is the hash-derived identifier of a match.
type MatchID string

// SentinelBlock marks "not yet set" for Start and LastMove.
const SentinelBlock BlockNumber = 0

// MatchStyle selects the per-move and abandonment time budgets.
type MatchStyle string

const (
	StyleBullet MatchStyle = "bullet"
	StyleBlitz  MatchStyle = "blitz"
	StyleRapid  MatchStyle = "rapid"
	StyleDaily  MatchStyle = "daily"
)

// ParseStyle validates a style token coming from a caller.
func ParseStyle(s string) (MatchStyle, error) {
	switch MatchStyle(s) {
	case StyleBullet, StyleBlitz, StyleRapid, StyleDaily:
		return MatchStyle(s), nil
	}
	return "", fmt.Errorf("unknown match style %q", s)
}

// Periods holds the per-move time budget of each style, in blocks.
type Periods struct {
	Bullet BlockNumber `yaml:"bullet"`
	Blitz  BlockNumber `yaml:"blitz"`
	Rapid  BlockNumber `yaml:"rapid"`
	Daily  BlockNumber `yaml:"daily"`
}

// For returns the per-move budget for a style.
func (p Periods) For(style MatchStyle) BlockNumber {
	switch style {
	case StyleBullet:
		return p.Bullet
	case StyleBlitz:
		return p.Blitz
	case StyleRapid:
		return p.Rapid
	case StyleDaily:
		return p.Daily
	}
	return p.Daily
}

// NextMove identifies the side to move in an ongoing match.
type NextMove string

const (
	Whites NextMove = "whites"
	Blacks NextMove = "blacks"
)

// Other returns the opposite side.
func (n NextMove) Other() NextMove {
	if n == Whites {
		return Blacks
	}
	return Whites
}

// StateKind is the lifecycle phase of a match.
type StateKind string

const (
	KindAwaitingOpponent StateKind = "awaiting_opponent"
	KindOnGoing          StateKind = "ongoing"
	KindWon              StateKind = "won"
	KindDrawn            StateKind = "drawn"
)

// MatchState is a tagged state: Turn is meaningful only while Kind is
// KindOnGoing. Construct through the helpers so the pairing stays valid.
type MatchState struct {
	Kind StateKind `json:"kind"`
	Turn NextMove  `json:"turn,omitempty"`
}

func AwaitingOpponent() MatchState { return MatchState{Kind: KindAwaitingOpponent} }

func OnGoing(turn NextMove) MatchState { return MatchState{Kind: KindOnGoing, Turn: turn} }

func Won() MatchState { return MatchState{Kind: KindWon} }

func Drawn() MatchState { return MatchState{Kind: KindDrawn} }

func (s MatchState) IsOnGoing() bool { return s.Kind == KindOnGoing }

func (s MatchState) IsAwaiting() bool { return s.Kind == KindAwaitingOpponent }

// Match is the persisted record of one escrowed game. The challenger plays
// the white pieces and moves first once the opponent joins.
type Match struct {
	ID         MatchID     `json:"id"`
	Challenger AccountID   `json:"challenger"`
	Opponent   AccountID   `json:"opponent"`
	Board      string      `json:"board"`
	State      MatchState  `json:"state"`
	Nonce      uint64      `json:"nonce"`
	Style      MatchStyle  `json:"style"`
	Start      BlockNumber `json:"start"`
	LastMove   BlockNumber `json:"last_move"`
	BetAssetID AssetID     `json:"bet_asset_id"`
	BetAmount  Amount      `json:"bet_amount"`
}

// AccountOf maps a side to the account playing it.
func (m *Match) AccountOf(side NextMove) AccountID {
	if side == Whites {
		return m.Challenger
	}
	return m.Opponent
}

// HasPlayer reports whether the account is one of the two participants.
func (m *Match) HasPlayer(a AccountID) bool {
	return a == m.Challenger || a == m.Opponent
}

// Pot is the total escrowed prize once both stakes are in.
func (m *Match) Pot() Amount { return 2 * m.BetAmount }

// JanitorIncentive splits the pot into the janitor's share and the winner's
// remainder, given the configured incentive percentage. Pure function, also
// used by callers to preview the split before the abandonment threshold.
func (m *Match) JanitorIncentive(sharePercent uint8) (incentive, remainder Amount) {
	pot := m.Pot()
	incentive = pot * Amount(sharePercent) / 100
	return incentive, pot - incentive
}

// ComputeMatchID derives the match identifier from the creation triple.
// Collisions are co-incident with nonce collisions, which the checked
// counter prevents.
func ComputeMatchID(challenger, opponent AccountID, nonce uint64) MatchID {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d", challenger, opponent, nonce))
	return MatchID(hex.EncodeToString(h[:]))
}
