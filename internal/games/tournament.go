package games

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
)

// RoundPolicy decides the set tournament lengths are drawn from.
type RoundPolicy int

const (
	// RoundsFixed draws from {3, 5, 7}. Odd lengths rule out a tied
	// scoreline once every round produced a winner.
	RoundsFixed RoundPolicy = iota
	// RoundsRange draws from [1, 10]. Even lengths allow tied tournaments,
	// which DetermineChampion reports as Undetermined.
	RoundsRange
)

var ErrUnknownRoundPolicy = errors.New("unknown round policy")

var fixedRoundCounts = [3]uint64{3, 5, 7}

// ParseRoundPolicy accepts "fixed" or "range".
func ParseRoundPolicy(s string) (RoundPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed":
		return RoundsFixed, nil
	case "range":
		return RoundsRange, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRoundPolicy, s)
	}
}

func (p RoundPolicy) String() string {
	switch p {
	case RoundsFixed:
		return "fixed"
	case RoundsRange:
		return "range"
	default:
		return fmt.Sprintf("round_policy(%d)", int(p))
	}
}

// Contains reports whether n is a round count this policy can produce.
func (p RoundPolicy) Contains(n uint64) bool {
	if p == RoundsRange {
		return n >= 1 && n <= 10
	}
	for _, c := range fixedRoundCounts {
		if c == n {
			return true
		}
	}
	return false
}

// Champion is the outcome of a whole tournament.
type Champion uint8

const (
	Undetermined Champion = iota
	PlayerChampion
	ComputerChampion
)

func (c Champion) String() string {
	switch c {
	case Undetermined:
		return "Undetermined"
	case PlayerChampion:
		return "Player"
	case ComputerChampion:
		return "Computer"
	default:
		return fmt.Sprintf("Champion(%d)", uint8(c))
	}
}

// Score is a running tally of round wins. Draws are not counted.
type Score struct {
	PlayerWins   uint64 `json:"player_wins"`
	ComputerWins uint64 `json:"computer_wins"`
}

// Played returns the number of decisive rounds.
func (s Score) Played() uint64 {
	return s.PlayerWins + s.ComputerWins
}

// Record adds a round outcome to the tally.
func (s Score) Record(o Outcome) Score {
	switch o {
	case PlayerWin:
		s.PlayerWins++
	case ComputerWin:
		s.ComputerWins++
	}
	return s
}

// MajorityThreshold returns floor(totalRounds/2) + 1, the wins needed to
// clinch a tournament.
func MajorityThreshold(totalRounds *uint256.Int) *uint256.Int {
	t := new(uint256.Int).Rsh(totalRounds, 1)
	return t.AddUint64(t, 1)
}

// DetermineChampion returns Player once playerWins reaches the majority
// threshold, Computer once computerWins does, and Undetermined otherwise.
func DetermineChampion(playerWins, computerWins, totalRounds *uint256.Int) Champion {
	t := MajorityThreshold(totalRounds)
	switch {
	case !playerWins.Lt(t):
		return PlayerChampion
	case !computerWins.Lt(t):
		return ComputerChampion
	default:
		return Undetermined
	}
}

// Oracle is the tournament controller and public randomness source.
type Oracle struct {
	mixer  engine.Mixer
	rounds RoundPolicy
}

// NewOracle binds a mixer to a round policy.
func NewOracle(mixer engine.Mixer, rounds RoundPolicy) Oracle {
	return Oracle{mixer: mixer, rounds: rounds}
}

// RoundPolicy returns the active round policy.
func (o Oracle) RoundPolicy() RoundPolicy {
	return o.rounds
}

// EntropyPolicy returns the mixer's policy.
func (o Oracle) EntropyPolicy() engine.Policy {
	return o.mixer.Policy()
}

// GenerateRounds maps mix(seed) into the active round policy.
func (o Oracle) GenerateRounds(env engine.Env, seed *uint256.Int) uint64 {
	m := o.mixer.Mix(env, seed)
	if o.rounds == RoundsRange {
		return new(uint256.Int).Mod(m, ten).Uint64() + 1
	}
	return fixedRoundCounts[new(uint256.Int).Mod(m, three).Uint64()]
}

// RpsChoice is the computer's move for a round when no history is known.
func (o Oracle) RpsChoice(env engine.Env, round, seed *uint256.Int) Move {
	r := roll(o.mixer, env, round, seed)
	return Move(new(uint256.Int).Mod(r, three).Uint64())
}

// RandomNumber returns mix(seed) mod rng. A zero range yields 0.
func (o Oracle) RandomNumber(env engine.Env, seed, rng *uint256.Int) *uint256.Int {
	if rng.IsZero() {
		return new(uint256.Int)
	}
	m := o.mixer.Mix(env, seed)
	return m.Mod(m, rng)
}

// RandomSeed derives a fresh seed from the environment snapshot. It has no
// caller input, so it reads the environment under either entropy policy.
func (o Oracle) RandomSeed(env engine.Env) *uint256.Int {
	return engine.Mix(&env.BlockNumber, &env.BlockTimestamp)
}
