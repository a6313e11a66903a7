package scripting

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/replay"
)

// Strategy is a scripted player.
type Strategy struct {
	vm     *VM
	logger logrus.FieldLogger
}

// NewStrategy loads source into a fresh VM and checks it defines nextMove.
func NewStrategy(source string, logger logrus.FieldLogger) (*Strategy, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	vm := NewVM()
	if err := vm.Execute(source); err != nil {
		return nil, err
	}
	if !vm.HasNextMove() {
		return nil, ErrNoStrategy
	}
	return &Strategy{vm: vm, logger: logger}, nil
}

// VM exposes the underlying runtime, e.g. to tune timeouts or read logs.
func (s *Strategy) VM() *VM {
	return s.vm
}

// NextMove implements replay.Player.
func (s *Strategy) NextMove(ctx context.Context, round uint64, history []games.Move, score games.Score) (games.Move, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m, err := s.vm.CallNextMove(round, history, score)
	for _, entry := range s.vm.DrainLogs() {
		s.logger.WithFields(logrus.Fields{"round": round, "message": entry.Message}).Debug("script_log")
	}
	return m, err
}

// SimulateRequest plays Matches consecutive seeds starting at SeedStart.
type SimulateRequest struct {
	Script    string
	SeedStart *uint256.Int
	Matches   int
	Env       engine.Env
}

// SimulationSummary aggregates the results of a simulation.
type SimulationSummary struct {
	Matches           int              `json:"matches"`
	PlayerChampions   int              `json:"player_champions"`
	ComputerChampions int              `json:"computer_champions"`
	Undetermined      int              `json:"undetermined"`
	RoundsPlayed      int              `json:"rounds_played"`
	Score             games.Score      `json:"score"`
	Reports           []*replay.Report `json:"reports,omitempty"`
}

// Simulate plays the scripted player against the engine. One VM serves the
// whole simulation, so scripts may keep state between matches.
func Simulate(ctx context.Context, eng *replay.Engine, req SimulateRequest, keepReports bool, logger logrus.FieldLogger) (*SimulationSummary, error) {
	if req.Matches <= 0 {
		return nil, fmt.Errorf("matches must be positive, got %d", req.Matches)
	}
	if req.SeedStart == nil {
		return nil, replay.ErrNilSeed
	}

	strategy, err := NewStrategy(req.Script, logger)
	if err != nil {
		return nil, err
	}

	sum := &SimulationSummary{}
	seed := new(uint256.Int).Set(req.SeedStart)
	for i := 0; i < req.Matches; i++ {
		report, err := eng.Play(ctx, req.Env, seed, strategy)
		if err != nil {
			return nil, fmt.Errorf("match %d: %w", i+1, err)
		}

		sum.Matches++
		sum.RoundsPlayed += len(report.Rounds)
		sum.Score.PlayerWins += report.Score.PlayerWins
		sum.Score.ComputerWins += report.Score.ComputerWins
		switch report.Champion {
		case games.PlayerChampion:
			sum.PlayerChampions++
		case games.ComputerChampion:
			sum.ComputerChampions++
		default:
			sum.Undetermined++
		}
		if keepReports {
			sum.Reports = append(sum.Reports, report)
		}

		seed.AddUint64(seed, 1)
	}
	return sum, nil
}
