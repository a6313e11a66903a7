package api

import (
	"bytes"
	"encoding/json"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/abi"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/scan"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

const (
	// Input validation errors
	ErrTypeValidation    = "validation_error"
	ErrTypeInvalidWord   = "invalid_word"
	ErrTypeInvalidParams = "invalid_params"

	// Dispatch errors
	ErrTypeInvalidCalldata = "invalid_calldata"
	ErrTypeUnknownSelector = "unknown_selector"
	ErrTypeRevert          = "revert"
	ErrTypeMetricNotFound  = "metric_not_found"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryDispatch   ErrorCategory = "dispatch"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation, ErrTypeInvalidWord, ErrTypeInvalidParams:
		return CategoryValidation
	case ErrTypeInvalidCalldata, ErrTypeUnknownSelector, ErrTypeRevert, ErrTypeMetricNotFound:
		return CategoryDispatch
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// Word is a 256-bit argument as sent by clients: a JSON number, or a string
// holding a decimal or 0x-prefixed hex value. It is parsed during validation.
type Word string

func (w *Word) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*w = Word(s)
		return nil
	}
	*w = Word(b)
	return nil
}

// EnvOverride lets a request pin the block metadata instead of using the
// server's current snapshot.
type EnvOverride struct {
	BlockNumber    *Word `json:"block_number,omitempty"`
	BlockTimestamp *Word `json:"block_timestamp,omitempty"`
}

// CallRequest carries raw ABI calldata.
type CallRequest struct {
	Calldata string `json:"calldata"`
	EnvOverride
}

// CallResponse is the decoded result of a dispatched call.
type CallResponse struct {
	Function      string `json:"function"`
	Signature     string `json:"signature"`
	Selector      string `json:"selector"`
	ReturnData    string `json:"return_data"`
	Value         string `json:"value"`
	EngineVersion string `json:"engine_version"`
}

// FunctionInfo describes one dispatch table entry.
type FunctionInfo struct {
	Name      string   `json:"name"`
	Signature string   `json:"signature"`
	Selector  string   `json:"selector"`
	Inputs    []string `json:"inputs"`
}

// FunctionsResponse lists the dispatch table.
type FunctionsResponse struct {
	Functions     []FunctionInfo `json:"functions"`
	EngineVersion string         `json:"engine_version"`
}

func newFunctionInfo(m *abi.Method) FunctionInfo {
	inputs := make([]string, len(m.Inputs))
	for i, k := range m.Inputs {
		inputs[i] = k.String()
	}
	return FunctionInfo{
		Name:      m.Name,
		Signature: m.Signature,
		Selector:  m.Selector.String(),
		Inputs:    inputs,
	}
}

// MoveRequest asks for the computer's move.
type MoveRequest struct {
	Round   *Word  `json:"round"`
	Seed    *Word  `json:"seed"`
	History []Word `json:"history"`
	EnvOverride
}

// MoveResponse carries a move.
type MoveResponse struct {
	Move          uint64 `json:"move"`
	MoveName      string `json:"move_name"`
	EngineVersion string `json:"engine_version"`
}

// RoundRequest resolves one round.
type RoundRequest struct {
	PlayerMove   *Word `json:"player_move"`
	ComputerMove *Word `json:"computer_move"`
}

// RoundResponse carries a round outcome.
type RoundResponse struct {
	Outcome       uint64 `json:"outcome"`
	Result        string `json:"result"`
	EngineVersion string `json:"engine_version"`
}

// ChampionRequest evaluates a tournament score.
type ChampionRequest struct {
	PlayerWins   *Word `json:"player_wins"`
	ComputerWins *Word `json:"computer_wins"`
	TotalRounds  *Word `json:"total_rounds"`
}

// ChampionResponse carries the champion and the wins needed to clinch.
type ChampionResponse struct {
	Champion          uint64 `json:"champion"`
	ChampionName      string `json:"champion_name"`
	MajorityThreshold string `json:"majority_threshold"`
	EngineVersion     string `json:"engine_version"`
}

// AdviceRequest asks for a stake recommendation.
type AdviceRequest struct {
	PlayerWins   *Word `json:"player_wins"`
	ComputerWins *Word `json:"computer_wins"`
	TotalRounds  *Word `json:"total_rounds"`
	CurrentRound *Word `json:"current_round"`
}

// AdviceResponse carries a stake in wei and ether.
type AdviceResponse struct {
	StakeWei      string `json:"stake_wei"`
	StakeEther    string `json:"stake_ether"`
	EngineVersion string `json:"engine_version"`
}

// RoundsRequest asks for a tournament length.
type RoundsRequest struct {
	Seed *Word `json:"seed"`
	EnvOverride
}

// RoundsResponse carries the tournament length.
type RoundsResponse struct {
	TotalRounds       uint64 `json:"total_rounds"`
	MajorityThreshold string `json:"majority_threshold"`
	EngineVersion     string `json:"engine_version"`
}

// RandomRequest asks for a bounded random number.
type RandomRequest struct {
	Seed  *Word `json:"seed"`
	Range *Word `json:"range"`
	EnvOverride
}

// WordResponse carries a single 256-bit result.
type WordResponse struct {
	Value         string `json:"value"`
	Hex           string `json:"hex"`
	EngineVersion string `json:"engine_version"`
}

// DifficultyResponse carries the computer's difficulty.
type DifficultyResponse struct {
	Difficulty     uint64 `json:"difficulty"`
	DifficultyName string `json:"difficulty_name"`
	EngineVersion  string `json:"engine_version"`
}

// ReplayRequest re-derives a match.
type ReplayRequest struct {
	Seed        *Word    `json:"seed"`
	PlayerMoves []uint64 `json:"player_moves"`
	EnvOverride
}

// ScanRequest represents a scan operation request
type ScanRequest struct {
	Metric     string      `json:"metric"`
	SeedStart  uint64      `json:"seed_start"`
	SeedEnd    uint64      `json:"seed_end"`
	Params     scan.Params `json:"params"`
	TargetOp   string      `json:"target_op"`
	TargetVal  float64     `json:"target_val"`
	TargetVal2 float64     `json:"target_val2,omitempty"`
	Tolerance  float64     `json:"tolerance"`
	Limit      int         `json:"limit,omitempty"`
	TimeoutMs  int         `json:"timeout_ms,omitempty"`
	EnvOverride
}

// MetricsListResponse lists scan metrics.
type MetricsListResponse struct {
	Metrics       []scan.MetricSpec `json:"metrics"`
	EngineVersion string            `json:"engine_version"`
}
