package scan

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
)

// Params configures a metric evaluation. Metrics ignore fields they do not use.
type Params struct {
	Round   uint64       `json:"round,omitempty"`
	Range   uint64       `json:"range,omitempty"`
	History []games.Move `json:"history,omitempty"`
}

// MetricSpec describes a metric.
type MetricSpec struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MetricLabel string   `json:"metric_label"`
	Params      []string `json:"params,omitempty"`
}

// Metric maps a seed to a number that scans compare against a target.
type Metric interface {
	Spec() MetricSpec
	Evaluate(env engine.Env, seed *uint256.Int, p Params) (float64, error)
}

// Registry holds the metrics available to scans.
type Registry struct {
	metrics map[string]Metric
}

// NewRegistry registers every oracle-backed metric.
func NewRegistry(ai games.ComputerAI, oracle games.Oracle) *Registry {
	r := &Registry{metrics: make(map[string]Metric)}
	r.Register(roundsMetric{oracle})
	r.Register(choiceMetric{oracle})
	r.Register(randomMetric{oracle})
	r.Register(moveMetric{ai})
	return r
}

// Register adds or replaces a metric.
func (r *Registry) Register(m Metric) {
	r.metrics[m.Spec().ID] = m
}

// Get retrieves a metric by ID.
func (r *Registry) Get(id string) (Metric, bool) {
	m, ok := r.metrics[id]
	return m, ok
}

// List returns all metric specs ordered by ID.
func (r *Registry) List() []MetricSpec {
	specs := make([]MetricSpec, 0, len(r.metrics))
	for _, m := range r.metrics {
		specs = append(specs, m.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

type roundsMetric struct{ oracle games.Oracle }

func (roundsMetric) Spec() MetricSpec {
	return MetricSpec{ID: "rounds", Name: "Tournament length", MetricLabel: "total_rounds"}
}

func (m roundsMetric) Evaluate(env engine.Env, seed *uint256.Int, _ Params) (float64, error) {
	return float64(m.oracle.GenerateRounds(env, seed)), nil
}

type choiceMetric struct{ oracle games.Oracle }

func (choiceMetric) Spec() MetricSpec {
	return MetricSpec{ID: "choice", Name: "Computer choice", MetricLabel: "move", Params: []string{"round"}}
}

func (m choiceMetric) Evaluate(env engine.Env, seed *uint256.Int, p Params) (float64, error) {
	return float64(m.oracle.RpsChoice(env, uint256.NewInt(p.Round), seed)), nil
}

type randomMetric struct{ oracle games.Oracle }

func (randomMetric) Spec() MetricSpec {
	return MetricSpec{ID: "random", Name: "Random number", MetricLabel: "value", Params: []string{"range"}}
}

func (m randomMetric) Evaluate(env engine.Env, seed *uint256.Int, p Params) (float64, error) {
	return float64(m.oracle.RandomNumber(env, seed, uint256.NewInt(p.Range)).Uint64()), nil
}

type moveMetric struct{ ai games.ComputerAI }

func (moveMetric) Spec() MetricSpec {
	return MetricSpec{ID: "move", Name: "Computer move", MetricLabel: "move", Params: []string{"round", "history"}}
}

func (m moveMetric) Evaluate(env engine.Env, seed *uint256.Int, p Params) (float64, error) {
	mv, err := m.ai.GetMove(env, uint256.NewInt(p.Round), seed, p.History)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return float64(mv), nil
}
