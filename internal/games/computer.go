package games

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
)

// Difficulty is the advertised strength of the computer opponent.
type Difficulty uint8

const (
	Easy Difficulty = iota
	Medium
	Hard
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "Easy"
	case Medium:
		return "Medium"
	case Hard:
		return "Hard"
	default:
		return fmt.Sprintf("Difficulty(%d)", uint8(d))
	}
}

const (
	// DefaultCounterThreshold gives a 30% chance to counter the player's last move.
	DefaultCounterThreshold = 3
	// DefaultRepeatThreshold gives a further 30% chance to counter a repeated move.
	DefaultRepeatThreshold = 3
	// DefaultBaseStake is 0.001 ether in wei.
	DefaultBaseStake = 1_000_000_000_000_000

	maxStakeMultiplier = 3
)

var (
	three   = uint256.NewInt(3)
	ten     = uint256.NewInt(10)
	twenty  = uint256.NewInt(20)
	hundred = uint256.NewInt(100)
)

// AIOptions configures a ComputerAI. Zero thresholds are legal and disable
// the corresponding counter rule.
type AIOptions struct {
	CounterThreshold uint64
	RepeatThreshold  uint64
	BaseStake        uint64
}

// DefaultAIOptions returns the canonical deployment constants.
func DefaultAIOptions() AIOptions {
	return AIOptions{
		CounterThreshold: DefaultCounterThreshold,
		RepeatThreshold:  DefaultRepeatThreshold,
		BaseStake:        DefaultBaseStake,
	}
}

// ComputerAI picks the computer's moves and stakes.
type ComputerAI struct {
	mixer            engine.Mixer
	counterThreshold uint64
	repeatThreshold  uint64
	baseStake        uint256.Int
}

// NewComputerAI validates opts and binds them to a mixer.
func NewComputerAI(mixer engine.Mixer, opts AIOptions) (ComputerAI, error) {
	if opts.CounterThreshold > 10 {
		return ComputerAI{}, fmt.Errorf("counter threshold %d out of range [0,10]", opts.CounterThreshold)
	}
	if opts.RepeatThreshold > 10 {
		return ComputerAI{}, fmt.Errorf("repeat threshold %d out of range [0,10]", opts.RepeatThreshold)
	}

	ai := ComputerAI{
		mixer:            mixer,
		counterThreshold: opts.CounterThreshold,
		repeatThreshold:  opts.RepeatThreshold,
	}
	ai.baseStake.SetUint64(opts.BaseStake)
	return ai, nil
}

// BaseStake returns the stake unit in wei.
func (ai ComputerAI) BaseStake() *uint256.Int {
	return new(uint256.Int).Set(&ai.baseStake)
}

// Difficulty is constant for this engine.
func (ai ComputerAI) Difficulty() Difficulty {
	return Medium
}

// GetMove returns the computer's move for a round.
//
// The roll r = mix(seed, round) drives every decision. With no history the
// move is r mod 3. Otherwise the computer plays the beater of the player's
// last move when the units digit of r is below the counter threshold, or,
// failing that, when the player repeated their last two moves and the tens
// digit of r is below the repeat threshold. Anything else falls back to r mod 3.
func (ai ComputerAI) GetMove(env engine.Env, round, seed *uint256.Int, history []Move) (Move, error) {
	for i, m := range history {
		if !m.Valid() {
			return 0, fmt.Errorf("history[%d]: %w: %d", i, ErrInvalidMove, m)
		}
	}

	r := roll(ai.mixer, env, round, seed)
	random := Move(new(uint256.Int).Mod(r, three).Uint64())
	if len(history) == 0 {
		return random, nil
	}

	last := history[len(history)-1]
	if digit(r, 0) < ai.counterThreshold {
		return last.Beater(), nil
	}

	if len(history) >= 2 && history[len(history)-2] == last && digit(r, 1) < ai.repeatThreshold {
		return last.Beater(), nil
	}

	return random, nil
}

// BettingAdvice recommends the computer's stake in wei from the running score.
//
// Evaluated in order: no rounds played gives the base stake; a computer lead
// scales the base stake by 1 + 2*lead/played, capped at 3; a player lead
// halves it; a tie varies it between 90% and 109% by the current round.
// Every division truncates.
func (ai ComputerAI) BettingAdvice(playerWins, computerWins, totalRounds, currentRound *uint256.Int) *uint256.Int {
	base := &ai.baseStake

	switch {
	case playerWins.IsZero() && computerWins.IsZero():
		return new(uint256.Int).Set(base)

	case computerWins.Gt(playerWins):
		m := leadMultiplier(playerWins, computerWins)
		return new(uint256.Int).Mul(base, uint256.NewInt(m))

	case playerWins.Gt(computerWins):
		return new(uint256.Int).Rsh(base, 1)

	default:
		variation := new(uint256.Int).Mod(currentRound, twenty)
		variation.AddUint64(variation, 90)
		stake := new(uint256.Int).Mul(base, variation)
		return stake.Div(stake, hundred)
	}
}

// leadMultiplier computes min(3, 1 + 2(c-p)/max(p+c, 1)) for c > p.
//
// The quotient 2(c-p)/(p+c) is 2 when p is zero, 1 when c >= 3p and 0
// otherwise, which avoids forming p+c or 2(c-p) in 256 bits.
func leadMultiplier(p, c *uint256.Int) uint64 {
	var q uint64
	switch {
	case p.IsZero():
		q = 2
	case !new(uint256.Int).Div(c, three).Lt(p):
		q = 1
	}

	m := 1 + q
	if m > maxStakeMultiplier {
		m = maxStakeMultiplier
	}
	return m
}

// roll is the shared per-round random value for move selection.
func roll(mixer engine.Mixer, env engine.Env, round, seed *uint256.Int) *uint256.Int {
	return mixer.Mix(env, seed, round)
}

// digit returns the n-th decimal digit of r, counting from the units.
func digit(r *uint256.Int, n int) uint64 {
	v := new(uint256.Int).Set(r)
	for i := 0; i < n; i++ {
		v.Div(v, ten)
	}
	return v.Mod(v, ten).Uint64()
}
