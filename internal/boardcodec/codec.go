// Package boardcodec adapts the chess engine library to the compact board
// and move encodings the match engine stores: FEN for positions and the
// fixed 4-character from/to square form for moves.
package boardcodec

import (
	"errors"
	"fmt"
	"strings"

	chesslib "github.com/corentings/chess/v2"

	"github.com/gambitworks/chessvault/internal/domain"
)

var (
	ErrInvalidBoardEncoding = errors.New("invalid board encoding")
	ErrInvalidMoveEncoding  = errors.New("invalid move encoding")
)

// MoveEncodingLen is the exact length accepted for a move encoding.
const MoveEncodingLen = 4

// InitialPosition returns the canonical starting position encoding.
func InitialPosition() string {
	return chesslib.NewGame().FEN()
}

// Position wraps a reconstructed game so status evaluation after a move has
// the engine's full legality context.
type Position struct {
	game *chesslib.Game
}

// Decode parses a stored board encoding.
func Decode(board string) (*Position, error) {
	fen := strings.TrimSpace(board)
	if fen == "" {
		return nil, ErrInvalidBoardEncoding
	}
	option, err := chesslib.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoardEncoding, err)
	}
	return &Position{game: chesslib.NewGame(option)}, nil
}

// Move is a decoded, position-validated move.
type Move struct {
	uci   string
	inner *chesslib.Move
}

// UCI returns the normalized 4-character encoding of the move.
func (m *Move) UCI() string { return m.uci }

// ParseMove enforces the fixed 4-character square-to-square encoding. This is
// a cheap syntactic pre-check; legality is decided by DecodeMove against a
// position.
func ParseMove(raw string) (string, error) {
	if len(raw) != MoveEncodingLen {
		return "", ErrInvalidMoveEncoding
	}
	uci := strings.ToLower(raw)
	if !squareOK(uci[0], uci[1]) || !squareOK(uci[2], uci[3]) {
		return "", ErrInvalidMoveEncoding
	}
	return uci, nil
}

func squareOK(file, rank byte) bool {
	return file >= 'a' && file <= 'h' && rank >= '1' && rank <= '8'
}

// DecodeMove resolves a parsed encoding against the position. The second
// return is false when the move is not legal here.
func (p *Position) DecodeMove(uci string) (*Move, bool) {
	mv, err := chesslib.UCINotation{}.Decode(p.game.Position(), uci)
	if err != nil {
		return nil, false
	}
	return &Move{uci: uci, inner: mv}, true
}

// ApplyUnchecked plays a move previously validated by DecodeMove.
func (p *Position) ApplyUnchecked(m *Move) {
	p.game.Move(m.inner, nil)
}

// FEN encodes the current position.
func (p *Position) FEN() string {
	return p.game.FEN()
}

// StatusKind classifies a position outcome.
type StatusKind string

const (
	StatusOngoing StatusKind = "ongoing"
	StatusWon     StatusKind = "won"
	StatusDrawn   StatusKind = "drawn"
)

// Status reports the game status of the position. SideToMove is meaningful
// only while ongoing, Winner only when won.
type Status struct {
	Kind       StatusKind
	SideToMove domain.NextMove
	Winner     domain.NextMove
}

func (p *Position) Status() Status {
	switch p.game.Outcome() {
	case chesslib.WhiteWon:
		return Status{Kind: StatusWon, Winner: domain.Whites}
	case chesslib.BlackWon:
		return Status{Kind: StatusWon, Winner: domain.Blacks}
	case chesslib.Draw:
		return Status{Kind: StatusDrawn}
	}
	side := domain.Whites
	if p.game.Position().Turn() == chesslib.Black {
		side = domain.Blacks
	}
	return Status{Kind: StatusOngoing, SideToMove: side}
}
