package games

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
)

// ErrInvalidMove is returned for any move outside {Rock, Paper, Scissors}.
// Moves are never coerced into range.
var ErrInvalidMove = errors.New("invalid move")

// Move is one of Rock=0, Paper=1, Scissors=2.
type Move uint8

const (
	Rock Move = iota
	Paper
	Scissors
)

// MoveCount is the number of legal moves.
const MoveCount = 3

var moveNames = [MoveCount]string{"Rock", "Paper", "Scissors"}

// Valid reports whether m is a legal move.
func (m Move) Valid() bool {
	return m < MoveCount
}

// Beater returns the move that beats m.
func (m Move) Beater() Move {
	return (m + 1) % MoveCount
}

// Beats reports whether m wins against other.
func (m Move) Beats(other Move) bool {
	return other.Beater() == m
}

func (m Move) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Move(%d)", uint8(m))
	}
	return moveNames[m]
}

// MarshalJSON encodes a move as its number. Without it []Move would encode
// as a base64 string.
func (m Move) MarshalJSON() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(m), 10), nil
}

// ParseMove converts a word into a Move, rejecting anything above Scissors.
func ParseMove(w *uint256.Int) (Move, error) {
	if w == nil || !w.IsUint64() || w.Uint64() >= MoveCount {
		return 0, fmt.Errorf("%w: %s", ErrInvalidMove, wordString(w))
	}
	return Move(w.Uint64()), nil
}

// ParseHistory converts a sequence of words into moves, failing on the first
// illegal entry.
func ParseHistory(words []*uint256.Int) ([]Move, error) {
	history := make([]Move, len(words))
	for i, w := range words {
		m, err := ParseMove(w)
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		history[i] = m
	}
	return history, nil
}

// MoveFromInt converts a plain integer into a Move.
func MoveFromInt(v int) (Move, error) {
	if v < 0 || v >= MoveCount {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMove, v)
	}
	return Move(v), nil
}

// Outcome is the result of a single round, from the player's perspective.
type Outcome uint8

const (
	Draw Outcome = iota
	PlayerWin
	ComputerWin
)

func (o Outcome) String() string {
	switch o {
	case Draw:
		return "Draw"
	case PlayerWin:
		return "Player wins"
	case ComputerWin:
		return "Computer wins"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Resolve compares two moves with the cyclic beats relation: Rock beats
// Scissors, Paper beats Rock, Scissors beats Paper.
func Resolve(player, computer Move) (Outcome, error) {
	if !player.Valid() {
		return 0, fmt.Errorf("player move: %w: %d", ErrInvalidMove, player)
	}
	if !computer.Valid() {
		return 0, fmt.Errorf("computer move: %w: %d", ErrInvalidMove, computer)
	}

	switch {
	case player == computer:
		return Draw, nil
	case player.Beats(computer):
		return PlayerWin, nil
	default:
		return ComputerWin, nil
	}
}

func wordString(w *uint256.Int) string {
	if w == nil {
		return "<nil>"
	}
	return w.Dec()
}
