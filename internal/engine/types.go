package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"
)

// Policy selects where the mixer takes its entropy from.
type Policy int

const (
	// PolicySeedOnly mixes caller-supplied inputs only. Anyone holding the
	// seed can predict and replay every output.
	PolicySeedOnly Policy = iota
	// PolicyEnvironment also mixes the block number and block timestamp.
	// Outputs are reproducible only by observers who know that metadata.
	PolicyEnvironment
)

var ErrUnknownPolicy = errors.New("unknown entropy policy")

// ParsePolicy accepts "seed" or "environment" (also "env").
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "seed", "seed-only", "seed_only":
		return PolicySeedOnly, nil
	case "env", "environment":
		return PolicyEnvironment, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

func (p Policy) String() string {
	switch p {
	case PolicySeedOnly:
		return "seed"
	case PolicyEnvironment:
		return "environment"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Env is a read-only snapshot of the public environment metadata.
type Env struct {
	BlockNumber    uint256.Int
	BlockTimestamp uint256.Int
}

// NewEnv builds a snapshot from plain integers.
func NewEnv(blockNumber, blockTimestamp uint64) Env {
	var env Env
	env.BlockNumber.SetUint64(blockNumber)
	env.BlockTimestamp.SetUint64(blockTimestamp)
	return env
}

// EnvSource hands out environment snapshots.
type EnvSource interface {
	Snapshot() Env
}

// StaticEnv always returns the same snapshot.
type StaticEnv Env

func (s StaticEnv) Snapshot() Env {
	return Env(s)
}

// ClockEnv derives a block height and timestamp from the wall clock, for
// hosts that do not run next to a chain.
type ClockEnv struct {
	Genesis       time.Time
	BlockInterval time.Duration
	Now           func() time.Time
}

func (c ClockEnv) Snapshot() Env {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}

	var height uint64
	if c.BlockInterval > 0 && now.After(c.Genesis) {
		height = uint64(now.Sub(c.Genesis) / c.BlockInterval)
	}

	ts := now.Unix()
	if ts < 0 {
		ts = 0
	}
	return NewEnv(height, uint64(ts))
}
