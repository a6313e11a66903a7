package abi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// WordSize is the width of every encoded argument slot.
const WordSize = 32

// SelectorSize is the length of the function selector prefix.
const SelectorSize = 4

var (
	ErrShortCalldata   = errors.New("calldata shorter than a selector")
	ErrUnknownSelector = errors.New("unknown function selector")
	ErrArgumentCount   = errors.New("argument data does not match signature")
	ErrBadOffset       = errors.New("dynamic argument offset out of bounds")
	ErrValueCount      = errors.New("value count does not match signature")
)

// Kind is the type of one argument.
type Kind int

const (
	Uint256 Kind = iota
	Uint256Array
)

func (k Kind) String() string {
	if k == Uint256Array {
		return "uint256[]"
	}
	return "uint256"
}

func (k Kind) dynamic() bool {
	return k == Uint256Array
}

// Selector is the first four bytes of keccak256(signature).
type Selector [SelectorSize]byte

func (s Selector) String() string {
	return fmt.Sprintf("0x%x", s[:])
}

// SignatureOf builds the canonical signature string, e.g. "getMove(uint256,uint256,uint256[])".
func SignatureOf(name string, inputs []Kind) string {
	parts := make([]string, len(inputs))
	for i, k := range inputs {
		parts[i] = k.String()
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// SelectorOf hashes a canonical signature into its selector.
func SelectorOf(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature))[:SelectorSize])
	return s
}

// Value is one decoded argument. Word is set for Uint256, Array for Uint256Array.
type Value struct {
	Word  *uint256.Int
	Array []*uint256.Int
}

// WordValue wraps a scalar argument.
func WordValue(w *uint256.Int) Value {
	return Value{Word: w}
}

// ArrayValue wraps an array argument.
func ArrayValue(ws []*uint256.Int) Value {
	return Value{Array: ws}
}

// decodeArgs validates and decodes argument data laid out as a head of one
// slot per argument followed by the tails of dynamic arguments. The data
// must end exactly where the last tail ends.
func decodeArgs(kinds []Kind, data []byte) ([]Value, error) {
	headSize := len(kinds) * WordSize
	if len(data) < headSize {
		return nil, fmt.Errorf("%w: want at least %d bytes, got %d", ErrArgumentCount, headSize, len(data))
	}

	values := make([]Value, len(kinds))
	end := headSize

	for i, k := range kinds {
		slot := data[i*WordSize : (i+1)*WordSize]
		if !k.dynamic() {
			values[i].Word = new(uint256.Int).SetBytes32(slot)
			continue
		}

		offset, err := boundedInt(slot, headSize, len(data)-WordSize)
		if err != nil {
			return nil, fmt.Errorf("argument %d offset: %w", i, err)
		}
		if offset%WordSize != 0 {
			return nil, fmt.Errorf("%w: argument %d offset %d not word aligned", ErrBadOffset, i, offset)
		}

		maxLen := (len(data) - offset - WordSize) / WordSize
		n, err := boundedInt(data[offset:offset+WordSize], 0, maxLen)
		if err != nil {
			return nil, fmt.Errorf("argument %d length: %w", i, err)
		}

		elems := make([]*uint256.Int, n)
		base := offset + WordSize
		for j := range elems {
			elems[j] = new(uint256.Int).SetBytes32(data[base+j*WordSize : base+(j+1)*WordSize])
		}
		values[i].Array = elems

		if tail := base + n*WordSize; tail > end {
			end = tail
		}
	}

	if len(data) != end {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrArgumentCount, end, len(data))
	}
	return values, nil
}

// boundedInt reads a slot as an int in [lo, hi].
func boundedInt(slot []byte, lo, hi int) (int, error) {
	v := new(uint256.Int).SetBytes32(slot)
	if hi < lo || !v.IsUint64() || v.Uint64() > uint64(hi) || v.Uint64() < uint64(lo) {
		return 0, fmt.Errorf("%w: %s not in [%d, %d]", ErrBadOffset, v.Dec(), lo, hi)
	}
	return int(v.Uint64()), nil
}

// encodeArgs lays out values for kinds. Dynamic tails follow the head in
// argument order.
func encodeArgs(kinds []Kind, values []Value) ([]byte, error) {
	if len(kinds) != len(values) {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrValueCount, len(kinds), len(values))
	}

	head := make([]byte, 0, len(kinds)*WordSize)
	var tail []byte
	for i, k := range kinds {
		if !k.dynamic() {
			if values[i].Word == nil {
				return nil, fmt.Errorf("%w: argument %d is nil", ErrValueCount, i)
			}
			head = appendWord(head, values[i].Word)
			continue
		}

		offset := uint256.NewInt(uint64(len(kinds)*WordSize + len(tail)))
		head = appendWord(head, offset)
		tail = appendWord(tail, uint256.NewInt(uint64(len(values[i].Array))))
		for j, w := range values[i].Array {
			if w == nil {
				return nil, fmt.Errorf("%w: argument %d element %d is nil", ErrValueCount, i, j)
			}
			tail = appendWord(tail, w)
		}
	}
	return append(head, tail...), nil
}

// EncodeWord encodes a single return value.
func EncodeWord(w *uint256.Int) []byte {
	return appendWord(make([]byte, 0, WordSize), w)
}

// DecodeWord decodes a single return value.
func DecodeWord(out []byte) (*uint256.Int, error) {
	if len(out) != WordSize {
		return nil, fmt.Errorf("%w: return data is %d bytes", ErrArgumentCount, len(out))
	}
	return new(uint256.Int).SetBytes32(out), nil
}

func appendWord(dst []byte, w *uint256.Int) []byte {
	b := w.Bytes32()
	return append(dst, b[:]...)
}
