package scripting

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
)

var (
	ErrNoStrategy   = errors.New("nextMove() function is not defined")
	ErrScriptResult = errors.New("nextMove() returned an invalid move")
	ErrTimeout      = errors.New("script timed out")
)

// LogEntry represents a single log message from the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// VM wraps a goja runtime with sandbox restrictions and global function injection.
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int

	initTimeout time.Duration
	callTimeout time.Duration
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
)

// NewVM creates a sandboxed goja runtime with global functions injected.
func NewVM() *VM {
	vm := &VM{
		runtime:     goja.New(),
		maxLogs:     500,
		initTimeout: scriptInitTimeout,
		callTimeout: scriptCallTimeout,
	}
	vm.injectGlobalFunctions()
	injectConstants(vm.runtime)
	return vm
}

// SetTimeouts overrides the script load and per-call limits.
func (vm *VM) SetTimeouts(init, call time.Duration) {
	if init > 0 {
		vm.initTimeout = init
	}
	if call > 0 {
		vm.callTimeout = call
	}
}

// injectGlobalFunctions registers log and console.log and blocks host access.
func (vm *VM) injectGlobalFunctions() {
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		vm.appendLog(strings.Join(parts, " "))
		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

func injectConstants(rt *goja.Runtime) {
	rt.Set("ROCK", int(games.Rock))
	rt.Set("PAPER", int(games.Paper))
	rt.Set("SCISSORS", int(games.Scissors))
}

func (vm *VM) appendLog(msg string) {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	if len(vm.logs) >= vm.maxLogs {
		vm.logs = vm.logs[1:]
	}
	vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: msg})
}

// Execute runs user script source code once to define nextMove().
func (vm *VM) Execute(source string) error {
	return vm.runWithTimeout(vm.initTimeout, func() error {
		if _, err := vm.runtime.RunString(source); err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		return nil
	})
}

// HasNextMove reports whether the script defined a nextMove function.
func (vm *VM) HasNextMove() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	_, ok := goja.AssertFunction(vm.runtime.Get("nextMove"))
	return ok
}

// CallNextMove calls nextMove(round, history, score). history is an array of
// move numbers and score an object {player, computer}. The script may
// return a move number or a move name.
func (vm *VM) CallNextMove(round uint64, history []games.Move, score games.Score) (games.Move, error) {
	var out games.Move
	err := vm.runWithTimeout(vm.callTimeout, func() error {
		fn, ok := goja.AssertFunction(vm.runtime.Get("nextMove"))
		if !ok {
			return ErrNoStrategy
		}

		hist := make([]interface{}, len(history))
		for i, m := range history {
			hist[i] = int(m)
		}
		sc := vm.runtime.NewObject()
		sc.Set("player", score.PlayerWins)
		sc.Set("computer", score.ComputerWins)

		v, err := fn(goja.Undefined(), vm.runtime.ToValue(round), vm.runtime.ToValue(hist), sc)
		if err != nil {
			return fmt.Errorf("nextMove() error: %w", err)
		}
		out, err = toMove(v)
		return err
	})
	return out, err
}

func toMove(v goja.Value) (games.Move, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, fmt.Errorf("%w: %v", ErrScriptResult, v)
	}

	switch x := v.Export().(type) {
	case int64:
		m, err := games.MoveFromInt(int(x))
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrScriptResult, err)
		}
		return m, nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%w: %v", ErrScriptResult, x)
		}
		m, err := games.MoveFromInt(int(x))
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrScriptResult, err)
		}
		return m, nil
	case string:
		for m := games.Move(0); m < games.MoveCount; m++ {
			if strings.EqualFold(x, m.String()) {
				return m, nil
			}
		}
		return 0, fmt.Errorf("%w: %q", ErrScriptResult, x)
	default:
		return 0, fmt.Errorf("%w: %v", ErrScriptResult, v)
	}
}

// GetLogs returns a copy of the current log buffer.
func (vm *VM) GetLogs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

// DrainLogs returns and clears the log buffer.
func (vm *VM) DrainLogs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := vm.logs
	vm.logs = nil
	return out
}

// runWithTimeout runs fn holding the VM lock and interrupts the runtime if
// it overruns.
func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.runtime.ClearInterrupt()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		vm.runtime.Interrupt("script execution timeout")
		// The runtime stops at its next instruction; wait so the lock is
		// never released while fn still runs.
		<-done
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
