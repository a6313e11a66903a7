package games

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		player   Move
		computer Move
		want     Outcome
	}{
		{Rock, Rock, Draw},
		{Paper, Paper, Draw},
		{Scissors, Scissors, Draw},
		{Rock, Scissors, PlayerWin},
		{Scissors, Rock, ComputerWin},
		{Paper, Rock, PlayerWin},
		{Rock, Paper, ComputerWin},
		{Scissors, Paper, PlayerWin},
		{Paper, Scissors, ComputerWin},
	}

	for _, tt := range tests {
		got, err := Resolve(tt.player, tt.computer)
		if err != nil {
			t.Fatalf("Resolve(%v, %v) unexpected error: %v", tt.player, tt.computer, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%v, %v) = %v, want %v", tt.player, tt.computer, got, tt.want)
		}
	}
}

func TestResolveRejectsInvalidMoves(t *testing.T) {
	if _, err := Resolve(Move(3), Rock); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("Expected ErrInvalidMove for player move 3, got %v", err)
	}
	if _, err := Resolve(Rock, Move(255)); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("Expected ErrInvalidMove for computer move 255, got %v", err)
	}
}

func TestBeaterIsCyclic(t *testing.T) {
	for m := Move(0); m < MoveCount; m++ {
		b := m.Beater()
		if !b.Beats(m) {
			t.Errorf("%v.Beater() = %v does not beat %v", m, b, m)
		}
		if m.Beats(b) {
			t.Errorf("%v should not beat its own beater %v", m, b)
		}
	}
}

func TestParseMove(t *testing.T) {
	for v := uint64(0); v < MoveCount; v++ {
		m, err := ParseMove(uint256.NewInt(v))
		if err != nil || uint64(m) != v {
			t.Errorf("ParseMove(%d) = %v, %v", v, m, err)
		}
	}

	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	for _, w := range []*uint256.Int{uint256.NewInt(3), huge, nil} {
		if _, err := ParseMove(w); !errors.Is(err, ErrInvalidMove) {
			t.Errorf("ParseMove(%v) error = %v, want ErrInvalidMove", w, err)
		}
	}
}

func TestParseHistory(t *testing.T) {
	history, err := ParseHistory([]*uint256.Int{uint256.NewInt(0), uint256.NewInt(2), uint256.NewInt(1)})
	if err != nil {
		t.Fatalf("ParseHistory unexpected error: %v", err)
	}
	want := []Move{Rock, Scissors, Paper}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %v, want %v", i, history[i], want[i])
		}
	}

	if _, err := ParseHistory([]*uint256.Int{uint256.NewInt(1), uint256.NewInt(7)}); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("Expected ErrInvalidMove, got %v", err)
	}
}

func TestMoveSliceEncodesAsArray(t *testing.T) {
	b, err := json.Marshal([]Move{Rock, Scissors, Paper})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(b) != "[0,2,1]" {
		t.Errorf("Marshal = %s, want [0,2,1]", b)
	}

	var back []Move
	if err := json.Unmarshal(b, &back); err != nil || len(back) != 3 || back[1] != Scissors {
		t.Errorf("Unmarshal = %v, %v", back, err)
	}
}
