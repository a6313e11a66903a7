package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/abi"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
)

// run executes rpsd with args and returns stdout. A missing env file keeps
// the tests independent of the working directory.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logrus.SetOutput(new(bytes.Buffer))
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	root := Root()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSelectorsListsDispatchTable(t *testing.T) {
	out, err := run(t, "selectors")
	if err != nil {
		t.Fatalf("selectors failed: %v", err)
	}
	for _, sig := range []string{"getMove(uint256,uint256,uint256[])", "getRandomSeed()", "checkRoundWinner(uint256,uint256)"} {
		line := abi.SelectorOf(sig).String() + "  " + sig
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}
}

func TestCallByNameAndSignature(t *testing.T) {
	for _, name := range []string{"checkRoundWinner", "checkRoundWinner(uint256,uint256)"} {
		out, err := run(t, "call", name, "0", "2")
		if err != nil {
			t.Fatalf("call %s failed: %v", name, err)
		}
		if !strings.Contains(out, "result    1") {
			t.Errorf("call %s: unexpected output:\n%s", name, out)
		}
	}
}

func TestCallGetMoveWithArray(t *testing.T) {
	out, err := run(t, "call", "getMove", "1", "42", "0,0")
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}

	mixer := engine.NewMixer(engine.PolicySeedOnly)
	ai, err := games.NewComputerAI(mixer, games.DefaultAIOptions())
	if err != nil {
		t.Fatalf("NewComputerAI failed: %v", err)
	}
	want, err := ai.GetMove(engine.Env{}, uint256.NewInt(1), uint256.NewInt(42), []games.Move{games.Rock, games.Rock})
	if err != nil {
		t.Fatalf("GetMove failed: %v", err)
	}
	if !strings.Contains(out, "result    "+uint256.NewInt(uint64(want)).Dec()) {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestCallEmptyArray(t *testing.T) {
	if _, err := run(t, "call", "getMove", "1", "42", ""); err != nil {
		t.Fatalf("call with empty history failed: %v", err)
	}
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown_function", []string{"call", "nope"}, abi.ErrUnknownSelector},
		{"wrong_signature", []string{"call", "checkRoundWinner(uint256)", "0"}, abi.ErrUnknownSelector},
		{"argument_count", []string{"call", "checkRoundWinner", "0"}, abi.ErrArgumentCount},
		{"invalid_move", []string{"call", "checkRoundWinner", "0", "7"}, games.ErrInvalidMove},
		{"bad_word", []string{"call", "getMajorityThreshold", "xyz"}, engine.ErrInvalidWord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReplayCommand(t *testing.T) {
	out, err := run(t, "replay", "--seed", "42", "--moves", "rock,paper,2,0,1,scissors,0")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	var report struct {
		TotalRounds uint64            `json:"total_rounds"`
		Rounds      []json.RawMessage `json:"rounds"`
		Completed   bool              `json:"completed"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not a report: %v\n%s", err, out)
	}
	if report.TotalRounds == 0 || len(report.Rounds) == 0 || uint64(len(report.Rounds)) > report.TotalRounds {
		t.Errorf("played %d of %d rounds", len(report.Rounds), report.TotalRounds)
	}
}

func TestReplayRejectsBadMove(t *testing.T) {
	_, err := run(t, "replay", "--seed", "42", "--moves", "rock,lizard")
	if !errors.Is(err, games.ErrInvalidMove) {
		t.Errorf("got %v, want ErrInvalidMove", err)
	}
}

func TestScanCommand(t *testing.T) {
	out, err := run(t, "scan", "--metric", "rounds", "--start", "0", "--end", "49", "--op", "ge", "--val", "3")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	var result struct {
		Hits    []json.RawMessage `json:"hits"`
		Summary struct {
			TotalEvaluated uint64 `json:"total_evaluated"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not a scan result: %v", err)
	}
	if result.Summary.TotalEvaluated != 50 || len(result.Hits) != 50 {
		t.Errorf("evaluated %d, %d hits, want 50 and 50", result.Summary.TotalEvaluated, len(result.Hits))
	}
}

func TestSimulateCommand(t *testing.T) {
	script := filepath.Join(t.TempDir(), "always-rock.js")
	if err := os.WriteFile(script, []byte("function nextMove(round, history, score) { return ROCK; }\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "simulate", script, "--matches", "3", "--seed", "7")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	var summary struct {
		Matches int `json:"matches"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("output is not a summary: %v", err)
	}
	if summary.Matches != 3 {
		t.Errorf("matches = %d, want 3", summary.Matches)
	}
}

func TestTraceFlagOverridesLevel(t *testing.T) {
	t.Cleanup(func() { logrus.SetLevel(logrus.InfoLevel) })
	if _, err := run(t, "--trace", "selectors"); err != nil {
		t.Fatalf("selectors failed: %v", err)
	}
	if logrus.GetLevel() != logrus.TraceLevel {
		t.Errorf("level = %s, want trace", logrus.GetLevel())
	}
}

func TestParseMove(t *testing.T) {
	tests := []struct {
		in      string
		want    games.Move
		wantErr bool
	}{
		{"0", games.Rock, false},
		{"PAPER", games.Paper, false},
		{"scissors", games.Scissors, false},
		{"3", 0, true},
		{"-1", 0, true},
		{"spock", 0, true},
	}
	for _, tt := range tests {
		got, err := parseMove(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMove(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseMove(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
