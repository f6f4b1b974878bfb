package trk

import (
	"math/rand"
	"time"

	"github.com/emanuele/load-trk/index"
)

// Strategy selects how the per-streamline index is built. See the index
// package for the algorithms.
type Strategy = index.Strategy

const (
	// StrategyAuto picks the heuristic scan for large memory-resident
	// payloads and the sequential walk otherwise.
	StrategyAuto = index.StrategyAuto
	// StrategySequential always walks records exactly, one by one.
	StrategySequential = index.StrategySequential
	// StrategyHeuristic bulk-scans for length candidates and falls back to
	// the sequential walk on a candidate-count mismatch.
	StrategyHeuristic = index.StrategyHeuristic
)

type options struct {
	strategy  Strategy
	threshold uint32
	workers   int
	logger    *Logger
	rng       *rand.Rand
}

// Option configures Load behavior.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		strategy: StrategyAuto,
		logger:   NoopLogger(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithStrategy selects the index-building strategy. Default is StrategyAuto.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithScanThreshold overrides the heuristic scan threshold
// (index.DefaultThreshold). The default assumes coordinate magnitudes whose
// float32 bit patterns exceed 100000; files violating that assumption just
// take the sequential fallback, they are not misread.
func WithScanThreshold(threshold uint32) Option {
	return func(o *options) {
		o.threshold = threshold
	}
}

// WithWorkers caps the parallelism of the heuristic scan and of batch
// extraction. Values <= 0 mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger configures a logger for progress and fallback events.
// If nil is passed, logging stays disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRandSeed seeds the RNG used to resolve Sample selections, making the
// drawn ids reproducible.
func WithRandSeed(seed int64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewSource(seed))
	}
}
