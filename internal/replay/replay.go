package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
)

var (
	// ErrNoMoreMoves is returned by a Player that has run out of moves. The
	// match stops there and is reported as incomplete.
	ErrNoMoreMoves = errors.New("player has no more moves")
	ErrNilSeed     = errors.New("seed is required")
)

// Player supplies the player's move for each round. history holds the
// player's earlier moves and score the tally before this round.
type Player interface {
	NextMove(ctx context.Context, round uint64, history []games.Move, score games.Score) (games.Move, error)
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context, round uint64, history []games.Move, score games.Score) (games.Move, error)

func (f PlayerFunc) NextMove(ctx context.Context, round uint64, history []games.Move, score games.Score) (games.Move, error) {
	return f(ctx, round, history, score)
}

// Moves plays a fixed sequence and then returns ErrNoMoreMoves.
type Moves []games.Move

func (m Moves) NextMove(_ context.Context, round uint64, _ []games.Move, _ games.Score) (games.Move, error) {
	if round == 0 || round > uint64(len(m)) {
		return 0, ErrNoMoreMoves
	}
	return m[round-1], nil
}

// Round is one played round.
type Round struct {
	Number       uint64        `json:"round"`
	PlayerMove   games.Move    `json:"player_move"`
	ComputerMove games.Move    `json:"computer_move"`
	Outcome      games.Outcome `json:"outcome"`
	Result       string        `json:"result"`
	StakeWei     string        `json:"stake_wei"`
	StakeEther   string        `json:"stake_ether"`
	Score        games.Score   `json:"score"`
}

// Report is the full, re-derivable record of a match.
type Report struct {
	ID            uuid.UUID      `json:"id"`
	SeedHash      string         `json:"seed_hash"`
	EntropyPolicy string         `json:"entropy_policy"`
	RoundPolicy   string         `json:"round_policy"`
	TotalRounds   uint64         `json:"total_rounds"`
	Threshold     uint64         `json:"majority_threshold"`
	Rounds        []Round        `json:"rounds"`
	Score         games.Score    `json:"score"`
	Champion      games.Champion `json:"champion"`
	ChampionName  string         `json:"champion_name"`
	Completed     bool           `json:"completed"`
	UnusedMoves   int            `json:"unused_moves,omitempty"`
	TotalStakeWei string         `json:"total_stake_wei"`
	TotalStakeEth string         `json:"total_stake_ether"`
}

// Request replays a match from its seed and the player's recorded moves.
type Request struct {
	Seed        *uint256.Int
	PlayerMoves []games.Move
	Env         engine.Env
}

// Engine plays and replays matches against the computer AI.
type Engine struct {
	ai     games.ComputerAI
	oracle games.Oracle
	logger logrus.FieldLogger
}

// New creates a replay engine.
func New(ai games.ComputerAI, oracle games.Oracle, logger logrus.FieldLogger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{ai: ai, oracle: oracle, logger: logger}
}

// Replay re-derives a match record. Moves left over once the match has
// ended are counted in UnusedMoves.
func (e *Engine) Replay(ctx context.Context, req Request) (*Report, error) {
	for i, m := range req.PlayerMoves {
		if !m.Valid() {
			return nil, fmt.Errorf("player_moves[%d]: %w: %d", i, games.ErrInvalidMove, m)
		}
	}

	report, err := e.Play(ctx, req.Env, req.Seed, Moves(req.PlayerMoves))
	if err != nil {
		return nil, err
	}
	report.UnusedMoves = len(req.PlayerMoves) - len(report.Rounds)
	return report, nil
}

// Play runs a match to its end: a champion is determined or every round is
// played. A player returning ErrNoMoreMoves ends it early.
func (e *Engine) Play(ctx context.Context, env engine.Env, seed *uint256.Int, player Player) (*Report, error) {
	if seed == nil {
		return nil, ErrNilSeed
	}

	total := e.oracle.GenerateRounds(env, seed)
	totalW := uint256.NewInt(total)

	report := &Report{
		ID:            uuid.New(),
		SeedHash:      engine.HashWord(seed),
		EntropyPolicy: e.oracle.EntropyPolicy().String(),
		RoundPolicy:   e.oracle.RoundPolicy().String(),
		TotalRounds:   total,
		Threshold:     games.MajorityThreshold(totalW).Uint64(),
		Rounds:        make([]Round, 0, total),
	}

	log := e.logger.WithFields(logrus.Fields{
		"match_id":     report.ID.String(),
		"seed_hash":    report.SeedHash,
		"total_rounds": total,
	})
	log.Debug("match_start")

	var (
		score      games.Score
		history    = make([]games.Move, 0, total)
		totalStake = new(uint256.Int)
		champion   = games.Undetermined
	)

	for n := uint64(1); n <= total && champion == games.Undetermined; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pw, cw := uint256.NewInt(score.PlayerWins), uint256.NewInt(score.ComputerWins)
		stake := e.ai.BettingAdvice(pw, cw, totalW, uint256.NewInt(n-1))

		pm, err := player.NextMove(ctx, n, append([]games.Move(nil), history...), score)
		if errors.Is(err, ErrNoMoreMoves) {
			log.WithField("round", n).Debug("match_out_of_moves")
			break
		}
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", n, err)
		}
		if !pm.Valid() {
			return nil, fmt.Errorf("round %d: %w: %d", n, games.ErrInvalidMove, pm)
		}

		cm, err := e.ai.GetMove(env, uint256.NewInt(n), seed, history)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", n, err)
		}
		outcome, err := games.Resolve(pm, cm)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", n, err)
		}

		score = score.Record(outcome)
		history = append(history, pm)
		totalStake.Add(totalStake, stake)

		report.Rounds = append(report.Rounds, Round{
			Number:       n,
			PlayerMove:   pm,
			ComputerMove: cm,
			Outcome:      outcome,
			Result:       outcome.String(),
			StakeWei:     stake.Dec(),
			StakeEther:   games.FormatStake(stake),
			Score:        score,
		})

		champion = games.DetermineChampion(uint256.NewInt(score.PlayerWins), uint256.NewInt(score.ComputerWins), totalW)
	}

	report.Score = score
	report.Champion = champion
	report.ChampionName = champion.String()
	report.Completed = champion != games.Undetermined || uint64(len(report.Rounds)) == total
	report.TotalStakeWei = totalStake.Dec()
	report.TotalStakeEth = games.FormatStake(totalStake)

	log.WithFields(logrus.Fields{
		"rounds_played": len(report.Rounds),
		"champion":      report.ChampionName,
		"completed":     report.Completed,
	}).Info("match_complete")

	return report, nil
}
