package engine

import (
	"github.com/holiman/uint256"
)

// Mixing constants. The fold uses the 256-bit FNV-1a offset basis and prime;
// the avalanche multiplier is the 256-bit fractional golden ratio (odd).
var (
	fnvOffsetBasis = uint256.MustFromHex("0xdd268dbcaac550362d98c384c4e576ccc8b1536847b6bbb31023b4c8caee0535")
	fnvPrime       = new(uint256.Int).Add(new(uint256.Int).Lsh(uint256.NewInt(1), 168), uint256.NewInt(0x163))
	goldenRatio    = uint256.MustFromHex("0x9e3779b97f4a7c15f39cc0605cedc8341082276bf3a27251f86c6a11d0c18e95")
)

// Mix folds the inputs into a single well-spread 256-bit value.
//
// Every step is xor, shift or multiplication modulo 2^256, so Mix is total
// over the full input width and never faults. For a single input the result
// is a bijection of that input. A nil input is treated as zero.
func Mix(inputs ...*uint256.Int) *uint256.Int {
	h := new(uint256.Int).Set(fnvOffsetBasis)
	for _, x := range inputs {
		if x != nil {
			h.Xor(h, x)
		}
		h.Mul(h, fnvPrime)
	}
	return avalanche(h)
}

// avalanche folds high bits into low bits so a later small modulus sees
// every input bit.
func avalanche(h *uint256.Int) *uint256.Int {
	t := new(uint256.Int)
	h.Xor(h, t.Rsh(h, 128))
	h.Mul(h, goldenRatio)
	h.Xor(h, t.Rsh(h, 97))
	h.Mul(h, fnvPrime)
	h.Xor(h, t.Rsh(h, 131))
	h.Mul(h, goldenRatio)
	h.Xor(h, t.Rsh(h, 128))
	return h
}

// Mixer applies one entropy source policy to Mix.
type Mixer struct {
	policy Policy
}

// NewMixer creates a mixer bound to a single policy.
func NewMixer(policy Policy) Mixer {
	return Mixer{policy: policy}
}

// Policy returns the active entropy source policy.
func (m Mixer) Policy() Policy {
	return m.policy
}

// Mix mixes the caller inputs. Under PolicyEnvironment the block number and
// block timestamp of env are appended, in that order; under PolicySeedOnly
// env is ignored.
func (m Mixer) Mix(env Env, inputs ...*uint256.Int) *uint256.Int {
	if m.policy != PolicyEnvironment {
		return Mix(inputs...)
	}

	all := make([]*uint256.Int, 0, len(inputs)+2)
	all = append(all, inputs...)
	all = append(all, &env.BlockNumber, &env.BlockTimestamp)
	return Mix(all...)
}
