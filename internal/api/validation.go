package api

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"go.uber.org/multierr"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/scan"
)

const (
	maxSeedRange = 10_000_000
	maxHitLimit  = 100_000
	maxTimeoutMs = 60_000
	maxHistory   = 1024
	maxReplay    = 1024
)

// validator accumulates every problem in a request so clients see them all at once.
type validator struct {
	err error
}

func (v *validator) fail(format string, args ...interface{}) {
	v.err = multierr.Append(v.err, fmt.Errorf(format, args...))
}

// word parses a required word field.
func (v *validator) word(field string, w *Word) *uint256.Int {
	if w == nil {
		v.fail("%s is required", field)
		return nil
	}
	return v.parse(field, *w)
}

// optionalWord parses a word field that may be omitted.
func (v *validator) optionalWord(field string, w *Word) *uint256.Int {
	if w == nil {
		return nil
	}
	return v.parse(field, *w)
}

func (v *validator) parse(field string, w Word) *uint256.Int {
	z, err := engine.ParseWord(string(w))
	if err != nil {
		v.fail("%s: %v", field, err)
		return nil
	}
	return z
}

// words parses a list of word fields.
func (v *validator) words(field string, ws []Word, limit int) []*uint256.Int {
	if len(ws) > limit {
		v.fail("%s has %d entries (max %d)", field, len(ws), limit)
		return nil
	}
	out := make([]*uint256.Int, len(ws))
	for i, w := range ws {
		out[i] = v.parse(fmt.Sprintf("%s[%d]", field, i), w)
	}
	return out
}

// env applies an override on top of base. Omitted fields keep base values.
func (v *validator) env(base engine.Env, o EnvOverride) engine.Env {
	if n := v.optionalWord("block_number", o.BlockNumber); n != nil {
		base.BlockNumber = *n
	}
	if ts := v.optionalWord("block_timestamp", o.BlockTimestamp); ts != nil {
		base.BlockTimestamp = *ts
	}
	return base
}

// moves validates plain move numbers for replays. Moves are never coerced.
func (v *validator) moves(field string, raw []uint64) []games.Move {
	if len(raw) > maxReplay {
		v.fail("%s has %d entries (max %d)", field, len(raw), maxReplay)
		return nil
	}
	out := make([]games.Move, len(raw))
	for i, m := range raw {
		if m >= games.MoveCount {
			v.fail("%s[%d]: %v: %d", field, i, games.ErrInvalidMove, m)
			continue
		}
		out[i] = games.Move(m)
	}
	return out
}

// Err returns the aggregated validation error, if any.
func (v *validator) Err() error {
	return v.err
}

var validOps = []scan.TargetOp{
	scan.OpEqual, scan.OpGreater, scan.OpGreaterEqual, scan.OpLess,
	scan.OpLessEqual, scan.OpBetween, scan.OpOutside,
}

// ValidateScanRequest checks the request limits enforced by the API on top of
// the scanner's own validation.
func ValidateScanRequest(req *ScanRequest) error {
	var v validator

	if req.Metric == "" {
		v.fail("metric is required")
	}
	if req.SeedEnd < req.SeedStart {
		v.fail("seed_end (%d) must be >= seed_start (%d)", req.SeedEnd, req.SeedStart)
	} else if req.SeedEnd-req.SeedStart >= maxSeedRange {
		v.fail("seed range too large (max %d seeds)", maxSeedRange)
	}

	if req.TargetOp == "" {
		v.fail("target_op is required")
	} else if !scan.TargetOp(req.TargetOp).Valid() {
		ops := make([]string, len(validOps))
		for i, op := range validOps {
			ops[i] = string(op)
		}
		v.fail("target_op must be one of: %s", strings.Join(ops, ", "))
	}
	if (req.TargetOp == string(scan.OpBetween) || req.TargetOp == string(scan.OpOutside)) && req.TargetVal > req.TargetVal2 {
		v.fail("target_val must be <= target_val2 for '%s' operation", req.TargetOp)
	}

	if req.Tolerance < 0 {
		v.fail("tolerance must be >= 0")
	}
	if req.Limit < 0 || req.Limit > maxHitLimit {
		v.fail("limit must be between 0 and %d", maxHitLimit)
	}
	if req.TimeoutMs < 0 || req.TimeoutMs > maxTimeoutMs {
		v.fail("timeout_ms must be between 0 and %d", maxTimeoutMs)
	}
	if len(req.Params.History) > maxHistory {
		v.fail("params.history has %d entries (max %d)", len(req.Params.History), maxHistory)
	}

	return v.Err()
}
