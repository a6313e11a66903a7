package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/abi"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/replay"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/scan"
)

const maxBodyBytes = 1 << 20

// decode reads a JSON body into dst, rejecting unknown fields.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.errorHandler.HandleValidationError(w, r, fmt.Errorf("invalid JSON body: %w", err))
		return false
	}
	return true
}

func (s *Server) unavailable(w http.ResponseWriter, r *http.Request, component string) {
	engineErr := NewError(ErrTypeServiceUnavailable, component+" not configured").
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path).
		Build()
	s.errorHandler.writeErrorResponse(w, http.StatusServiceUnavailable, engineErr)
}

// invoke runs a named function through the dispatch table so every endpoint
// exercises the same encoding, validation and metrics as raw calls.
func (s *Server) invoke(name string, env engine.Env, values ...abi.Value) (*uint256.Int, error) {
	m, ok := s.router.Method(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", abi.ErrUnknownSelector, name)
	}
	data, err := m.Pack(values...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := m.Invoke(env, data[abi.SelectorSize:])
	s.metrics.ObserveCall(name, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return abi.DecodeWord(out)
}

func wordValues(ws ...*uint256.Int) []abi.Value {
	out := make([]abi.Value, len(ws))
	for i, w := range ws {
		out[i] = abi.WordValue(w)
	}
	return out
}

// handleCall dispatches raw hex calldata.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if !s.decode(w, r, &req) {
		return
	}

	var v validator
	calldata, err := hexutil.Decode(req.Calldata)
	if err != nil {
		v.fail("calldata: %v", err)
	}
	env := v.env(s.env.Snapshot(), req.EnvOverride)
	if err := v.Err(); err != nil {
		s.errorHandler.HandleValidationError(w, r, err)
		return
	}

	m, err := s.router.Resolve(calldata)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	start := time.Now()
	out, err := m.Invoke(env, calldata[abi.SelectorSize:])
	s.metrics.ObserveCall(m.Name, err, time.Since(start))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	value, err := abi.DecodeWord(out)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CallResponse{
		Function:      m.Name,
		Signature:     m.Signature,
		Selector:      m.Selector.String(),
		ReturnData:    hexutil.Encode(out),
		Value:         value.Dec(),
		EngineVersion: EngineVersion,
	})
}

// handleFunctions lists the dispatch table.
func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	methods := s.router.Methods()
	resp := FunctionsResponse{
		Functions:     make([]FunctionInfo, len(methods)),
		EngineVersion: EngineVersion,
	}
	for i, m := range methods {
		resp.Functions[i] = newFunctionInfo(m)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleMove returns the computer's move for a round.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !s.decode(w, r, &req) {
		return
	}

	var v validator
	round := v.word("round", req.Round)
	seed := v.word("seed", req.Seed)
	history := v.words("history", req.History, maxHistory)
	env := v.env(s.env.Snapshot(), req.EnvOverride)
	if err := v.Err(); err != nil {
		s.errorHandler.HandleValidationError(w, r, err)
		return
	}

	out, err := s.invoke("getMove", env, abi.WordValue(round), abi.WordValue(seed), abi.ArrayValue(history))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	move := games.Move(out.Uint64())
	s.writeJSON(w, http.StatusOK, MoveResponse{Move: uint64(move), MoveName: move.String(), EngineVersion: EngineVersion})
}

// handleRound resolves a single round.
func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	var req RoundRequest
	if !s.decode(w, r, &req) {
		return
	}

	var v validator
	player := v.word("player_move", req.PlayerMove)
	computer := v.word("computer_move", req.ComputerMove)
	if err := v.Err(); err != nil {
		s.errorHandler.HandleValidationError(w, r, err)
		return
	}

	out, err := s.invoke("checkRoundWinner", engine.Env{}, wordValues(player, computer)...)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	outcome := games.Outcome(out.Uint64())
	s.writeJSON(w, http.StatusOK, RoundResponse{Outcome: uint64(outcome), Result: outcome.String(), EngineVersion: EngineVersion})
}

// handleChampion evaluates a tournament score.
func (s *Server) handleChampion(w http.ResponseWriter, r *http.Request) {
	var req ChampionRequest
	if !s.decode(w, r, &req) {
		return
	}

	var v validator
	p := v.word("player_wins", req.PlayerWins)
	c := v.word("computer_wins", req.ComputerWins)
	total := v.word("total_rounds", req.TotalRounds)
	if err := v.Err(); err != nil {
		s.errorHandler.HandleValidationError(w, r, err)
		return
	}

	out, err := s.invoke("determineChampion", engine.Env{}, wordValues(p, c, total)...)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	threshold, err := s.invoke("getMajorityThreshold", engine.Env{}, abi.WordValue(total))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	champion := games.Champion(out.Uint64())
	s.writeJSON(w, http.StatusOK, ChampionResponse{
		Champion:          uint64(champion),
		ChampionName:      champion.String(),
		MajorityThreshold: threshold.Dec(),
		EngineVersion:     EngineVersion,
	})
}

// handleAdvice recommends a stake.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var req AdviceRequest
	if !s.decode(w, r, &req) {
		return
	}

	var v validator
	p := v.word("player_wins", req.PlayerWins)
	c := v.word("computer_wins", req.ComputerWins)
	total := v.word("total_rounds", req.TotalRounds)
	current := v.word("current_round", req.CurrentRound)
	if err := v.Err(); err != nil {
		s.errorHandler.HandleValidationError(w, r, err)
		return
	}

	stake, err := s.invoke("getBettingAdvice", engine.Env{}, wordValues(p, c, total, current)...)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, AdviceResponse{
		StakeWei:      stake.Dec(),
		StakeEther:    games.FormatStake(stake),
		EngineVersion: EngineVersion,
	})
}

// handleRounds returns the tournament length for a seed.
func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	var req RoundsRequest
	if !s.decode(w, r, &req) {
		return
	}

	var v validator
	seed := v.word("seed", req.Seed)
	env := v.env(s.env.Snapshot(), req.EnvOverride)
	if err := v.Err(); err != nil {
		s.errorHandler.HandleValidationError(w, r, err)
		return
	}

	total, err := s.invoke("generateRounds", env, abi.WordValue(seed))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	threshold, err := s.invoke("getMajorityThreshold", env, abi.WordValue(total))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RoundsResponse{
		TotalRounds:       total.Uint64(),
		MajorityThreshold: threshold.Dec(),
		EngineVersion:     EngineVersion,
	})
}

// handleRandom returns mix(seed) mod range.
func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	var req RandomRequest
	if !s.decode(w, r, &req) {
		return
	}

	var v validator
	seed := v.word("seed", req.Seed)
	rng := v.word("range", req.Range)
	env := v.env(s.env.Snapshot(), req.EnvOverride)
	if err := v.Err(); err != nil {
		s.errorHandler.HandleValidationError(w, r, err)
		return
	}

	out, err := s.invoke("getRandomNumber", env, wordValues(seed, rng)...)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, WordResponse{Value: out.Dec(), Hex: out.Hex(), EngineVersion: EngineVersion})
}

// handleSeed derives a fresh seed from the block environment. The query
// parameters block_number and block_timestamp pin the snapshot.
func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	var (
		v        validator
		override EnvOverride
	)
	q := r.URL.Query()
	if q.Has("block_number") {
		n := Word(q.Get("block_number"))
		override.BlockNumber = &n
	}
	if q.Has("block_timestamp") {
		ts := Word(q.Get("block_timestamp"))
		override.BlockTimestamp = &ts
	}
	env := v.env(s.env.Snapshot(), override)
	if err := v.Err(); err != nil {
		s.errorHandler.HandleValidationError(w, r, err)
		return
	}

	out, err := s.invoke("getRandomSeed", env)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, WordResponse{Value: out.Dec(), Hex: out.Hex(), EngineVersion: EngineVersion})
}

// handleDifficulty reports the computer's difficulty.
func (s *Server) handleDifficulty(w http.ResponseWriter, r *http.Request) {
	out, err := s.invoke("getDifficulty", engine.Env{})
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	d := games.Difficulty(out.Uint64())
	s.writeJSON(w, http.StatusOK, DifficultyResponse{Difficulty: uint64(d), DifficultyName: d.String(), EngineVersion: EngineVersion})
}

// handleReplay re-derives a match from its seed and the player's moves.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	if s.replay == nil {
		s.unavailable(w, r, "replay")
		return
	}

	var req ReplayRequest
	if !s.decode(w, r, &req) {
		return
	}

	var v validator
	seed := v.word("seed", req.Seed)
	moves := v.moves("player_moves", req.PlayerMoves)
	env := v.env(s.env.Snapshot(), req.EnvOverride)
	if err := v.Err(); err != nil {
		s.errorHandler.HandleValidationError(w, r, err)
		return
	}

	report, err := s.replay.Replay(r.Context(), replay.Request{Seed: seed, PlayerMoves: moves, Env: env})
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleScan evaluates a metric over a seed range.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		s.unavailable(w, r, "scanner")
		return
	}

	var req ScanRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := ValidateScanRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, err)
		return
	}

	var v validator
	env := v.env(s.env.Snapshot(), req.EnvOverride)
	if err := v.Err(); err != nil {
		s.errorHandler.HandleValidationError(w, r, err)
		return
	}

	result, err := s.scanner.Scan(r.Context(), scan.ScanRequest{
		Metric:     req.Metric,
		SeedStart:  req.SeedStart,
		SeedEnd:    req.SeedEnd,
		Params:     req.Params,
		Env:        env,
		TargetOp:   scan.TargetOp(req.TargetOp),
		TargetVal:  req.TargetVal,
		TargetVal2: req.TargetVal2,
		Tolerance:  req.Tolerance,
		Limit:      req.Limit,
		TimeoutMs:  req.TimeoutMs,
	})
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleMetricsList lists the scan metrics.
func (s *Server) handleMetricsList(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		s.unavailable(w, r, "scanner")
		return
	}
	s.writeJSON(w, http.StatusOK, MetricsListResponse{
		Metrics:       s.scanner.Registry().List(),
		EngineVersion: EngineVersion,
	})
}

// handleVersion reports build information.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}
