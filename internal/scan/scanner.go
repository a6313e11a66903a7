package scan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
)

// TargetOp represents comparison operations for scanning
type TargetOp string

const (
	OpEqual        TargetOp = "eq"
	OpGreater      TargetOp = "gt"
	OpGreaterEqual TargetOp = "ge"
	OpLess         TargetOp = "lt"
	OpLessEqual    TargetOp = "le"
	OpBetween      TargetOp = "between"
	OpOutside      TargetOp = "outside"
)

// Valid reports whether op is a known operation.
func (op TargetOp) Valid() bool {
	switch op {
	case OpEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpBetween, OpOutside:
		return true
	}
	return false
}

func (op TargetOp) ranged() bool {
	return op == OpBetween || op == OpOutside
}

// ScanRequest describes a scan over seeds [SeedStart, SeedEnd].
type ScanRequest struct {
	Metric     string     `json:"metric"`
	SeedStart  uint64     `json:"seed_start"`
	SeedEnd    uint64     `json:"seed_end"`
	Params     Params     `json:"params"`
	Env        engine.Env `json:"-"`
	TargetOp   TargetOp   `json:"target_op"`
	TargetVal  float64    `json:"target_val"`
	TargetVal2 float64    `json:"target_val2,omitempty"` // for "between" and "outside"
	Tolerance  float64    `json:"tolerance"`
	Limit      int        `json:"limit,omitempty"`
	TimeoutMs  int        `json:"timeout_ms,omitempty"`
}

// Hit represents a single matching seed
type Hit struct {
	Seed   uint64  `json:"seed"`
	Metric float64 `json:"metric"`
}

// Summary contains aggregate statistics over the collected hits
type Summary struct {
	TotalEvaluated uint64  `json:"total_evaluated"`
	HitsFound      int     `json:"hits_found"`
	MinMetric      float64 `json:"min_metric"`
	MaxMetric      float64 `json:"max_metric"`
	MeanMetric     float64 `json:"mean_metric"`
	LimitReached   bool    `json:"limit_reached,omitempty"`
	TimedOut       bool    `json:"timed_out,omitempty"`
}

// ScanResult contains the complete scan results. Histogram counts every
// evaluated seed by metric value, hit or not.
type ScanResult struct {
	ID        uuid.UUID         `json:"id"`
	Hits      []Hit             `json:"hits"`
	Summary   Summary           `json:"summary"`
	Histogram map[string]uint64 `json:"histogram"`
	Duration  time.Duration     `json:"duration_ns"`
	Echo      ScanRequest       `json:"echo"`
}

// ScanJob represents a batch of seeds to process
type ScanJob struct {
	SeedStart uint64
	SeedEnd   uint64
}

const batchSize = 4096

// TargetEvaluator handles target condition evaluation with tolerance
type TargetEvaluator struct {
	op        TargetOp
	val1      float64
	val2      float64 // for "between" and "outside"
	tolerance float64
}

// NewTargetEvaluator creates a new target evaluator
func NewTargetEvaluator(op TargetOp, val1, val2, tolerance float64) *TargetEvaluator {
	return &TargetEvaluator{
		op:        op,
		val1:      val1,
		val2:      val2,
		tolerance: tolerance,
	}
}

// Matches checks if a metric matches the target criteria
func (te *TargetEvaluator) Matches(metric float64) bool {
	switch te.op {
	case OpEqual:
		return math.Abs(metric-te.val1) <= te.tolerance
	case OpGreater:
		return metric > te.val1+te.tolerance
	case OpGreaterEqual:
		return metric >= te.val1-te.tolerance
	case OpLess:
		return metric < te.val1-te.tolerance
	case OpLessEqual:
		return metric <= te.val1+te.tolerance
	case OpBetween:
		return metric >= te.val1-te.tolerance && metric <= te.val2+te.tolerance
	case OpOutside:
		return metric < te.val1-te.tolerance || metric > te.val2+te.tolerance
	default:
		return false
	}
}

// Scanner evaluates a metric across seed ranges with a worker pool.
type Scanner struct {
	registry    *Registry
	workerCount int
	logger      logrus.FieldLogger
}

// NewScanner creates a scanner. workers <= 0 uses GOMAXPROCS.
func NewScanner(registry *Registry, workers int, logger logrus.FieldLogger) *Scanner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scanner{registry: registry, workerCount: workers, logger: logger}
}

// Registry returns the metric registry the scanner resolves against.
func (s *Scanner) Registry() *Registry {
	return s.registry
}

// Validate checks a request without running it.
func (s *Scanner) Validate(req ScanRequest) (Metric, error) {
	metric, ok := s.registry.Get(req.Metric)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, req.Metric)
	}
	if req.SeedEnd < req.SeedStart {
		return nil, fmt.Errorf("%w: end %d before start %d", ErrInvalidRange, req.SeedEnd, req.SeedStart)
	}
	if !req.TargetOp.Valid() {
		return nil, fmt.Errorf("%w: op %q", ErrInvalidTarget, req.TargetOp)
	}
	if req.TargetOp.ranged() && req.TargetVal2 < req.TargetVal {
		return nil, fmt.Errorf("%w: target_val2 %v below target_val %v", ErrInvalidTarget, req.TargetVal2, req.TargetVal)
	}
	if req.Tolerance < 0 || req.Limit < 0 || req.TimeoutMs < 0 {
		return nil, fmt.Errorf("%w: negative tolerance, limit or timeout", ErrInvalidTarget)
	}
	// Params are seed independent, so one evaluation catches bad ones.
	if _, err := metric.Evaluate(req.Env, uint256.NewInt(req.SeedStart), req.Params); err != nil {
		return nil, err
	}
	return metric, nil
}

// Scan performs a parallel scan across the requested seed range. Hits are
// returned in seed order. With a limit, the scan stops once enough hits are
// collected, so which hits are kept depends on scheduling.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	metric, err := s.Validate(req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	parent := ctx

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if req.TimeoutMs > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancelTimeout()
	}

	evaluator := NewTargetEvaluator(req.TargetOp, req.TargetVal, req.TargetVal2, req.Tolerance)
	jobs := make(chan ScanJob, s.workerCount*2)
	hits := make(chan Hit, 1024)
	hist := &histogram{counts: make(map[float64]uint64)}

	var evaluated uint64
	var wg sync.WaitGroup
	for i := 0; i < s.workerCount; i++ {
		w := &scanWorker{
			id:        i,
			jobs:      jobs,
			hits:      hits,
			metric:    metric,
			env:       req.Env,
			params:    req.Params,
			evaluator: evaluator,
			hist:      hist,
			evaluated: &evaluated,
		}
		wg.Add(1)
		go w.run(runCtx, &wg)
	}

	go generateJobs(runCtx, jobs, req.SeedStart, req.SeedEnd)
	go func() {
		wg.Wait()
		close(hits)
	}()

	collector := &resultCollector{limit: req.Limit}
	for hit := range hits {
		if collector.add(hit) {
			cancel()
		}
	}

	if err := parent.Err(); err != nil {
		return nil, err
	}

	result := collector.result(atomic.LoadUint64(&evaluated))
	result.Summary.TimedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded)
	result.ID = uuid.New()
	result.Histogram = hist.snapshot()
	result.Duration = time.Since(started)
	result.Echo = req

	s.logger.WithFields(logrus.Fields{
		"scan_id":   result.ID.String(),
		"metric":    req.Metric,
		"evaluated": result.Summary.TotalEvaluated,
		"hits":      result.Summary.HitsFound,
		"timed_out": result.Summary.TimedOut,
		"duration":  result.Duration.String(),
	}).Info("scan_complete")

	return result, nil
}

type scanWorker struct {
	id        int
	jobs      <-chan ScanJob
	hits      chan<- Hit
	metric    Metric
	env       engine.Env
	params    Params
	evaluator *TargetEvaluator
	hist      *histogram
	evaluated *uint64
}

func (w *scanWorker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

func (w *scanWorker) process(ctx context.Context, job ScanJob) {
	local := make(map[float64]uint64)
	defer func() { w.hist.merge(local) }()

	seed := new(uint256.Int)
	for n := job.SeedStart; ; n++ {
		if ctx.Err() != nil {
			return
		}

		v, err := w.metric.Evaluate(w.env, seed.SetUint64(n), w.params)
		if err == nil {
			atomic.AddUint64(w.evaluated, 1)
			local[v]++
			if w.evaluator.Matches(v) {
				select {
				case w.hits <- Hit{Seed: n, Metric: v}:
				case <-ctx.Done():
					return
				}
			}
		}

		if n == job.SeedEnd {
			return
		}
	}
}

// generateJobs splits [start, end] into batches. end may be MaxUint64.
func generateJobs(ctx context.Context, jobs chan<- ScanJob, start, end uint64) {
	defer close(jobs)

	for current := start; ; {
		batchEnd := end
		if end-current >= batchSize {
			batchEnd = current + batchSize - 1
		}

		select {
		case jobs <- ScanJob{SeedStart: current, SeedEnd: batchEnd}:
		case <-ctx.Done():
			return
		}

		if batchEnd == end {
			return
		}
		current = batchEnd + 1
	}
}

type histogram struct {
	mu     sync.Mutex
	counts map[float64]uint64
}

func (h *histogram) merge(local map[float64]uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v, n := range local {
		h.counts[v] += n
	}
}

func (h *histogram) snapshot() map[string]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]uint64, len(h.counts))
	for v, n := range h.counts {
		out[strconv.FormatFloat(v, 'f', -1, 64)] = n
	}
	return out
}

// resultCollector aggregates hits up to the limit.
type resultCollector struct {
	limit        int
	hits         []Hit
	limitReached bool
}

// add records a hit and reports whether the limit has just been reached.
func (rc *resultCollector) add(hit Hit) bool {
	if rc.limitReached {
		return false
	}
	rc.hits = append(rc.hits, hit)
	if rc.limit > 0 && len(rc.hits) >= rc.limit {
		rc.limitReached = true
		return true
	}
	return false
}

func (rc *resultCollector) result(totalEvaluated uint64) *ScanResult {
	sort.Slice(rc.hits, func(i, j int) bool { return rc.hits[i].Seed < rc.hits[j].Seed })

	summary := Summary{
		TotalEvaluated: totalEvaluated,
		HitsFound:      len(rc.hits),
		LimitReached:   rc.limitReached,
	}
	if len(rc.hits) > 0 {
		lo, hi, sum := rc.hits[0].Metric, rc.hits[0].Metric, 0.0
		for _, h := range rc.hits {
			lo = math.Min(lo, h.Metric)
			hi = math.Max(hi, h.Metric)
			sum += h.Metric
		}
		summary.MinMetric = lo
		summary.MaxMetric = hi
		summary.MeanMetric = sum / float64(len(rc.hits))
	}

	hits := rc.hits
	if hits == nil {
		hits = []Hit{}
	}
	return &ScanResult{Hits: hits, Summary: summary}
}
