package abi

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
)

// HandlerFunc serves one decoded call. args has one Value per input kind.
type HandlerFunc func(env engine.Env, args []Value) (*uint256.Int, error)

// Method is one entry of the dispatch table.
type Method struct {
	Name      string
	Inputs    []Kind
	Signature string
	Selector  Selector
	handler   HandlerFunc
}

// Pack encodes calldata for this method: selector followed by arguments.
func (m *Method) Pack(values ...Value) ([]byte, error) {
	args, err := encodeArgs(m.Inputs, values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Signature, err)
	}
	out := make([]byte, 0, SelectorSize+len(args))
	out = append(out, m.Selector[:]...)
	return append(out, args...), nil
}

// Invoke decodes argument data (calldata without the selector) and runs the
// handler, returning the encoded result word.
func (m *Method) Invoke(env engine.Env, argData []byte) ([]byte, error) {
	args, err := decodeArgs(m.Inputs, argData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Signature, err)
	}

	out, err := m.handler(env, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}
	return EncodeWord(out), nil
}

// Router is a manually maintained selector dispatch table.
type Router struct {
	methods map[Selector]*Method
	byName  map[string]*Method
	logger  logrus.FieldLogger
}

// NewRouter builds the dispatch table for the computer AI and the oracle.
func NewRouter(ai games.ComputerAI, oracle games.Oracle, logger logrus.FieldLogger) (*Router, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Router{
		methods: make(map[Selector]*Method),
		byName:  make(map[string]*Method),
		logger:  logger,
	}

	w, arr := Uint256, Uint256Array

	table := []struct {
		name    string
		inputs  []Kind
		handler HandlerFunc
	}{
		{"getMove", []Kind{w, w, arr}, func(env engine.Env, a []Value) (*uint256.Int, error) {
			history, err := games.ParseHistory(a[2].Array)
			if err != nil {
				return nil, err
			}
			m, err := ai.GetMove(env, a[0].Word, a[1].Word, history)
			if err != nil {
				return nil, err
			}
			return uint256.NewInt(uint64(m)), nil
		}},
		{"getBettingAdvice", []Kind{w, w, w, w}, func(_ engine.Env, a []Value) (*uint256.Int, error) {
			return ai.BettingAdvice(a[0].Word, a[1].Word, a[2].Word, a[3].Word), nil
		}},
		{"getDifficulty", nil, func(engine.Env, []Value) (*uint256.Int, error) {
			return uint256.NewInt(uint64(ai.Difficulty())), nil
		}},
		{"generateRounds", []Kind{w}, func(env engine.Env, a []Value) (*uint256.Int, error) {
			return uint256.NewInt(oracle.GenerateRounds(env, a[0].Word)), nil
		}},
		{"getRpsChoice", []Kind{w, w}, func(env engine.Env, a []Value) (*uint256.Int, error) {
			return uint256.NewInt(uint64(oracle.RpsChoice(env, a[0].Word, a[1].Word))), nil
		}},
		{"checkRoundWinner", []Kind{w, w}, func(_ engine.Env, a []Value) (*uint256.Int, error) {
			player, err := games.ParseMove(a[0].Word)
			if err != nil {
				return nil, fmt.Errorf("player move: %w", err)
			}
			computer, err := games.ParseMove(a[1].Word)
			if err != nil {
				return nil, fmt.Errorf("computer move: %w", err)
			}
			o, err := games.Resolve(player, computer)
			if err != nil {
				return nil, err
			}
			return uint256.NewInt(uint64(o)), nil
		}},
		{"determineChampion", []Kind{w, w, w}, func(_ engine.Env, a []Value) (*uint256.Int, error) {
			return uint256.NewInt(uint64(games.DetermineChampion(a[0].Word, a[1].Word, a[2].Word))), nil
		}},
		{"getMajorityThreshold", []Kind{w}, func(_ engine.Env, a []Value) (*uint256.Int, error) {
			return games.MajorityThreshold(a[0].Word), nil
		}},
		{"getRandomNumber", []Kind{w, w}, func(env engine.Env, a []Value) (*uint256.Int, error) {
			return oracle.RandomNumber(env, a[0].Word, a[1].Word), nil
		}},
		{"getRandomSeed", nil, func(env engine.Env, _ []Value) (*uint256.Int, error) {
			return oracle.RandomSeed(env), nil
		}},
	}

	for _, e := range table {
		if err := r.register(e.name, e.inputs, e.handler); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Router) register(name string, inputs []Kind, h HandlerFunc) error {
	sig := SignatureOf(name, inputs)
	m := &Method{
		Name:      name,
		Inputs:    inputs,
		Signature: sig,
		Selector:  SelectorOf(sig),
		handler:   h,
	}
	if prev, ok := r.methods[m.Selector]; ok {
		return fmt.Errorf("selector %s of %s collides with %s", m.Selector, sig, prev.Signature)
	}
	r.methods[m.Selector] = m
	r.byName[name] = m
	return nil
}

// Resolve finds the method addressed by calldata.
func (r *Router) Resolve(calldata []byte) (*Method, error) {
	if len(calldata) < SelectorSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortCalldata, len(calldata))
	}
	var sel Selector
	copy(sel[:], calldata[:SelectorSize])

	m, ok := r.methods[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, sel)
	}
	return m, nil
}

// Call dispatches raw calldata and returns the encoded result.
func (r *Router) Call(env engine.Env, calldata []byte) ([]byte, error) {
	m, err := r.Resolve(calldata)
	if err != nil {
		return nil, err
	}
	return m.Invoke(env, calldata[SelectorSize:])
}

// Method looks a method up by name.
func (r *Router) Method(name string) (*Method, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Methods lists the dispatch table ordered by name.
func (r *Router) Methods() []*Method {
	out := make([]*Method, 0, len(r.byName))
	for _, m := range r.byName {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Deploy is the initialization hook. The engine holds no state, so there is
// nothing to set up.
func (r *Router) Deploy(env engine.Env) error {
	r.logger.WithFields(logrus.Fields{
		"block_number":    env.BlockNumber.Dec(),
		"block_timestamp": env.BlockTimestamp.Dec(),
		"functions":       len(r.methods),
	}).Info("deploy_hook")
	return nil
}
