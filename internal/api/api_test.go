package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/abi"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/replay"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/scan"
)

var testEnv = engine.NewEnv(100, 1_700_000_000)

type fixture struct {
	server *Server
	ai     games.ComputerAI
	oracle games.Oracle
	router *abi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mixer := engine.NewMixer(engine.PolicySeedOnly)
	ai, err := games.NewComputerAI(mixer, games.DefaultAIOptions())
	if err != nil {
		t.Fatalf("NewComputerAI failed: %v", err)
	}
	oracle := games.NewOracle(mixer, games.RoundsFixed)
	logger, _ := test.NewNullLogger()

	router, err := abi.NewRouter(ai, oracle, logger)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	server := NewServer(Options{
		Router:  router,
		Replay:  replay.New(ai, oracle, logger),
		Scanner: scan.NewScanner(scan.NewRegistry(ai, oracle), 2, logger),
		Env:     engine.StaticEnv(testEnv),
		Logger:  logger,
	})
	return &fixture{server: server, ai: ai, oracle: oracle, router: router}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.server.Routes().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, errType string) EngineError {
	t.Helper()
	if w.Code != status {
		t.Fatalf("Expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Error-Type"); got != errType {
		t.Errorf("X-Error-Type = %q, want %q", got, errType)
	}
	var e EngineError
	decodeBody(t, w, &e)
	if e.Type != errType {
		t.Errorf("error type = %q, want %q", e.Type, errType)
	}
	return e
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp HealthCheckResponse
	decodeBody(t, w, &resp)
	if resp.Status != HealthStatusHealthy {
		t.Errorf("status = %s, want healthy (checks: %+v)", resp.Status, resp.Checks)
	}
	if len(resp.Checks) != 3 {
		t.Errorf("got %d checks, want 3", len(resp.Checks))
	}
}

func TestHealthWithoutOptionalComponents(t *testing.T) {
	f := newFixture(t)
	logger, _ := test.NewNullLogger()
	server := NewServer(Options{Router: f.router, Logger: logger})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Routes().ServeHTTP(w, req)

	var resp HealthCheckResponse
	decodeBody(t, w, &resp)
	if w.Code != http.StatusOK || resp.Status != HealthStatusDegraded {
		t.Errorf("got %d %s, want 200 degraded", w.Code, resp.Status)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/scan", strings.NewReader(`{}`))
	w = httptest.NewRecorder()
	server.Routes().ServeHTTP(w, req)
	expectError(t, w, http.StatusServiceUnavailable, ErrTypeServiceUnavailable)
}

func TestReadinessWithoutRouter(t *testing.T) {
	logger, _ := test.NewNullLogger()
	server := NewServer(Options{Logger: logger})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	server.Routes().ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestLivenessEndpoint(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health/live", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("X-Engine-Version") == "" {
		t.Error("Expected X-Engine-Version header")
	}
}

func TestFunctionsEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/functions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp FunctionsResponse
	decodeBody(t, w, &resp)
	if len(resp.Functions) != 10 {
		t.Fatalf("got %d functions, want 10", len(resp.Functions))
	}
	for _, fn := range resp.Functions {
		if want := abi.SelectorOf(fn.Signature).String(); fn.Selector != want {
			t.Errorf("%s selector = %s, want %s", fn.Name, fn.Selector, want)
		}
	}
	if resp.EngineVersion == "" {
		t.Error("Expected engine version in response")
	}
}

func TestMoveEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/move", `{"round": 2, "seed": "0x2a", "history": [0, "1"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp MoveResponse
	decodeBody(t, w, &resp)

	want, err := f.ai.GetMove(testEnv, uint256.NewInt(2), uint256.NewInt(42), []games.Move{games.Rock, games.Paper})
	if err != nil {
		t.Fatalf("GetMove failed: %v", err)
	}
	if resp.Move != uint64(want) || resp.MoveName != want.String() {
		t.Errorf("got %d %q, want %d %q", resp.Move, resp.MoveName, want, want.String())
	}
}

func TestMoveEndpointInvalidHistoryReverts(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/move", `{"round": 1, "seed": 1, "history": [5]}`)
	expectError(t, w, http.StatusUnprocessableEntity, ErrTypeRevert)
}

func TestMoveEndpointCollectsValidationErrors(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/move", `{"history": ["zz"]}`)
	e := expectError(t, w, http.StatusBadRequest, ErrTypeValidation)

	problems, ok := e.Context["errors"].([]interface{})
	if !ok {
		t.Fatalf("errors context missing: %+v", e.Context)
	}
	// round, seed and history[0]
	if len(problems) != 3 {
		t.Errorf("got %d problems, want 3: %v", len(problems), problems)
	}
}

func TestRejectsUnknownFields(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/round", `{"player_move": 0, "computer_move": 1, "bet": 5}`)
	expectError(t, w, http.StatusBadRequest, ErrTypeValidation)
}

func TestRoundEndpoint(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		body string
		want games.Outcome
	}{
		{`{"player_move": 0, "computer_move": 2}`, games.PlayerWin},
		{`{"player_move": 0, "computer_move": 1}`, games.ComputerWin},
		{`{"player_move": 2, "computer_move": 2}`, games.Draw},
	}
	for _, tt := range tests {
		w := f.do(t, http.MethodPost, "/api/v1/round", tt.body)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", tt.body, w.Code)
		}
		var resp RoundResponse
		decodeBody(t, w, &resp)
		if games.Outcome(resp.Outcome) != tt.want || resp.Result != tt.want.String() {
			t.Errorf("%s: got %d %q, want %s", tt.body, resp.Outcome, resp.Result, tt.want)
		}
	}

	w := f.do(t, http.MethodPost, "/api/v1/round", `{"player_move": 3, "computer_move": 0}`)
	expectError(t, w, http.StatusUnprocessableEntity, ErrTypeRevert)
}

func TestChampionEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/champion", `{"player_wins": 2, "computer_wins": 0, "total_rounds": 3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp ChampionResponse
	decodeBody(t, w, &resp)
	if games.Champion(resp.Champion) != games.PlayerChampion || resp.ChampionName != "Player" {
		t.Errorf("champion = %d %q, want Player", resp.Champion, resp.ChampionName)
	}
	if resp.MajorityThreshold != "2" {
		t.Errorf("threshold = %s, want 2", resp.MajorityThreshold)
	}
}

func TestAdviceEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/advice", `{"player_wins": 1, "computer_wins": 2, "total_rounds": 5, "current_round": 3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp AdviceResponse
	decodeBody(t, w, &resp)

	want := f.ai.BettingAdvice(uint256.NewInt(1), uint256.NewInt(2), uint256.NewInt(5), uint256.NewInt(3))
	if resp.StakeWei != want.Dec() {
		t.Errorf("stake = %s, want %s", resp.StakeWei, want.Dec())
	}
	if resp.StakeEther != games.FormatStake(want) {
		t.Errorf("stake ether = %s, want %s", resp.StakeEther, games.FormatStake(want))
	}
}

func TestRoundsEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/rounds", `{"seed": "12345"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp RoundsResponse
	decodeBody(t, w, &resp)

	want := f.oracle.GenerateRounds(testEnv, uint256.NewInt(12345))
	if resp.TotalRounds != want {
		t.Errorf("rounds = %d, want %d", resp.TotalRounds, want)
	}
	if resp.MajorityThreshold != games.MajorityThreshold(uint256.NewInt(want)).Dec() {
		t.Errorf("threshold = %s", resp.MajorityThreshold)
	}
}

func TestRandomEndpointZeroRange(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/random", `{"seed": 7, "range": 0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp WordResponse
	decodeBody(t, w, &resp)
	if resp.Value != "0" {
		t.Errorf("value = %s, want 0", resp.Value)
	}
}

func TestSeedEndpointHonoursOverride(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/seed?block_number=7&block_timestamp=1000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp WordResponse
	decodeBody(t, w, &resp)
	if want := f.oracle.RandomSeed(engine.NewEnv(7, 1000)); resp.Value != want.Dec() {
		t.Errorf("seed = %s, want %s", resp.Value, want.Dec())
	}

	w = f.do(t, http.MethodGet, "/api/v1/seed?block_number=abc", "")
	expectError(t, w, http.StatusBadRequest, ErrTypeValidation)
}

func TestDifficultyEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/difficulty", "")
	var resp DifficultyResponse
	decodeBody(t, w, &resp)
	if games.Difficulty(resp.Difficulty) != f.ai.Difficulty() {
		t.Errorf("difficulty = %d, want %d", resp.Difficulty, f.ai.Difficulty())
	}
}

func TestCallEndpoint(t *testing.T) {
	f := newFixture(t)

	m, _ := f.router.Method("checkRoundWinner")
	data, err := m.Pack(abi.WordValue(uint256.NewInt(0)), abi.WordValue(uint256.NewInt(2)))
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	body, _ := json.Marshal(CallRequest{Calldata: hexutil.Encode(data)})

	w := f.do(t, http.MethodPost, "/api/v1/call", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp CallResponse
	decodeBody(t, w, &resp)
	if resp.Function != "checkRoundWinner" || resp.Value != "1" {
		t.Errorf("got %s = %s, want checkRoundWinner = 1", resp.Function, resp.Value)
	}
	if resp.Selector != m.Selector.String() {
		t.Errorf("selector = %s, want %s", resp.Selector, m.Selector)
	}
}

func TestCallEndpointErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		calldata string
		status   int
		errType  string
	}{
		{"not_hex", "0xzz", http.StatusBadRequest, ErrTypeValidation},
		{"short", "0x0102", http.StatusBadRequest, ErrTypeInvalidCalldata},
		{"unknown_selector", "0xdeadbeef", http.StatusNotFound, ErrTypeUnknownSelector},
		{"truncated_args", abi.SelectorOf("checkRoundWinner(uint256,uint256)").String() + "00", http.StatusBadRequest, ErrTypeInvalidCalldata},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(CallRequest{Calldata: tt.calldata})
			w := f.do(t, http.MethodPost, "/api/v1/call", string(body))
			expectError(t, w, tt.status, tt.errType)
		})
	}
}

func TestReplayEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/replay", `{"seed": 42, "player_moves": [0, 1, 2, 0, 1, 2, 0]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var report struct {
		SeedHash    string `json:"seed_hash"`
		TotalRounds uint64 `json:"total_rounds"`
		Rounds      []struct {
			Number uint64 `json:"round"`
		} `json:"rounds"`
	}
	decodeBody(t, w, &report)

	if want := f.oracle.GenerateRounds(testEnv, uint256.NewInt(42)); report.TotalRounds != want {
		t.Errorf("total rounds = %d, want %d", report.TotalRounds, want)
	}
	if len(report.Rounds) == 0 || uint64(len(report.Rounds)) > report.TotalRounds {
		t.Errorf("played %d rounds of %d", len(report.Rounds), report.TotalRounds)
	}
	if report.SeedHash != engine.HashWord(uint256.NewInt(42)) {
		t.Errorf("seed hash = %s", report.SeedHash)
	}
}

func TestReplayEndpointRejectsInvalidMoves(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/replay", `{"seed": 42, "player_moves": [0, 3]}`)
	expectError(t, w, http.StatusBadRequest, ErrTypeValidation)
}

func TestScanEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/scan", `{"metric": "rounds", "seed_start": 0, "seed_end": 99, "target_op": "ge", "target_val": 3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Hits    []scan.Hit   `json:"hits"`
		Summary scan.Summary `json:"summary"`
	}
	decodeBody(t, w, &resp)
	if resp.Summary.TotalEvaluated != 100 || len(resp.Hits) != 100 {
		t.Errorf("evaluated %d, hits %d, want 100 and 100", resp.Summary.TotalEvaluated, len(resp.Hits))
	}
}

func TestScanEndpointValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		body    string
		status  int
		errType string
	}{
		{"missing_fields", `{}`, http.StatusBadRequest, ErrTypeValidation},
		{"bad_op", `{"metric": "rounds", "seed_end": 10, "target_op": "ne"}`, http.StatusBadRequest, ErrTypeValidation},
		{"range_too_large", `{"metric": "rounds", "seed_end": 20000000, "target_op": "eq"}`, http.StatusBadRequest, ErrTypeValidation},
		{"unknown_metric", `{"metric": "nope", "seed_end": 10, "target_op": "eq"}`, http.StatusNotFound, ErrTypeMetricNotFound},
		{"bad_params", `{"metric": "move", "seed_end": 10, "target_op": "eq", "params": {"history": [4]}}`, http.StatusBadRequest, ErrTypeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/scan", tt.body)
			expectError(t, w, tt.status, tt.errType)
		})
	}
}

func TestMetricsListEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/metrics-list", "")
	var resp MetricsListResponse
	decodeBody(t, w, &resp)
	if len(resp.Metrics) != 4 {
		t.Errorf("got %d metrics, want 4", len(resp.Metrics))
	}
}

func TestPrometheusMetrics(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/api/v1/round", `{"player_move": 0, "computer_move": 2}`)
	f.do(t, http.MethodPost, "/api/v1/round", `{"player_move": 9, "computer_move": 2}`)

	w := f.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`rps_oracle_calls_total{function="checkRoundWinner",result="ok"} 1`,
		`rps_oracle_calls_total{function="checkRoundWinner",result="revert"} 1`,
		`rps_http_requests_total{method="POST",route="/api/v1/round",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestVersionEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/version", "")
	var resp VersionInfo
	decodeBody(t, w, &resp)
	if resp.EngineVersion != EngineVersion {
		t.Errorf("version = %s, want %s", resp.EngineVersion, EngineVersion)
	}
}

func TestWordAcceptsNumbersAndStrings(t *testing.T) {
	var req MoveRequest
	if err := json.NewDecoder(bytes.NewBufferString(`{"round": 3, "seed": "0xff"}`)).Decode(&req); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if req.Round == nil || *req.Round != "3" || req.Seed == nil || *req.Seed != "0xff" {
		t.Errorf("got round %v seed %v", req.Round, req.Seed)
	}
}
