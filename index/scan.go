package index

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultThreshold is the magnitude below which a payload uint32 word is
// taken as a length-prefix candidate. Float32 coordinate and scalar values
// reinterpreted as uint32 land below it only for magnitudes under ~1.4e-40,
// while realistic point counts never reach it. It is tied to expected
// coordinate magnitudes, not to the container format: files whose data
// produces extra sub-threshold words simply force the sequential fallback.
const DefaultThreshold uint32 = 100000

// MismatchError reports that the heuristic scan found a candidate count
// different from the declared streamline count. It is handled internally by
// Build via the sequential fallback and only surfaces through tests and
// direct ScanCandidates callers.
type MismatchError struct {
	Candidates, Want int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("heuristic scan mismatch: %d candidates for %d streamlines", e.Candidates, e.Want)
}

// Strategy selects how Build discovers record lengths.
type Strategy int

const (
	// StrategyAuto scans heuristically on payloads large enough for the
	// bulk pass to win and walks sequentially otherwise.
	StrategyAuto Strategy = iota
	// StrategySequential always uses the exact record walk.
	StrategySequential
	// StrategyHeuristic scans for length candidates by magnitude and falls
	// back to the sequential walk on a candidate-count mismatch.
	StrategyHeuristic
)

func (s Strategy) String() string {
	switch s {
	case StrategySequential:
		return "sequential"
	case StrategyHeuristic:
		return "heuristic"
	default:
		return "auto"
	}
}

// autoScanMin is the payload size from which StrategyAuto prefers the bulk
// scan; below it the scan setup outweighs the sequential walk.
const autoScanMin = 1 << 20

// Options tunes Build.
type Options struct {
	// Strategy selects the length-discovery algorithm.
	Strategy Strategy
	// Threshold overrides DefaultThreshold when nonzero.
	Threshold uint32
	// Workers caps the scan parallelism; <= 0 means GOMAXPROCS.
	Workers int
	// Logger receives fallback and progress events; nil disables logging.
	Logger *slog.Logger
}

func (o Options) threshold() uint32 {
	if o.Threshold == 0 {
		return DefaultThreshold
	}
	return o.Threshold
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Build indexes a memory-resident container image using the selected
// strategy. A heuristic mismatch is never surfaced: it downgrades to the
// sequential walk, whose result (or error) is returned instead. The
// returned Strategy is the one that actually produced the index, after
// auto resolution and any fallback.
func Build(data []byte, order binary.ByteOrder, headerSize int64, count int, schema Schema, opts Options) (*Index, Strategy, error) {
	strategy := opts.Strategy
	if strategy == StrategyAuto {
		strategy = StrategySequential
		if int64(len(data))-headerSize >= autoScanMin {
			strategy = StrategyHeuristic
		}
	}

	if strategy == StrategyHeuristic {
		entries, err := ScanCandidates(data, order, headerSize, opts.threshold(), opts.workers())
		if err == nil && len(entries) == count {
			return &Index{entries: entries, schema: schema}, StrategyHeuristic, nil
		}
		if err == nil {
			err = &MismatchError{Candidates: len(entries), Want: count}
		}
		opts.logger().Debug("heuristic scan discarded, falling back to sequential walk",
			"reason", err,
			"streamlines", count,
		)
	}

	ix, err := BuildSequentialBytes(data, order, headerSize, count, schema)
	return ix, StrategySequential, err
}

// ScanCandidates bulk-scans the payload for length-prefix candidates: every
// uint32 word w with 0 < w < threshold, in file order. The scan has no
// cross-word dependency, so it is partitioned across workers by word range
// and the per-partition results are concatenated, which preserves file
// order. Offsets point at the candidate word itself, the same convention as
// the sequential walk.
func ScanCandidates(data []byte, order binary.ByteOrder, headerSize int64, threshold uint32, workers int) ([]Entry, error) {
	payload := data[min(headerSize, int64(len(data))):]
	words := len(payload) / 4
	if words == 0 {
		return nil, nil
	}

	if workers <= 0 {
		workers = 1
	}
	if workers > words {
		workers = words
	}

	parts := make([][]Entry, workers)
	chunk := (words + workers - 1) / workers

	var g errgroup.Group
	for p := 0; p < workers; p++ {
		lo := p * chunk
		hi := min(lo+chunk, words)
		g.Go(func() error {
			var entries []Entry
			for i := lo; i < hi; i++ {
				w := order.Uint32(payload[i*4:])
				if w > 0 && w < threshold {
					entries = append(entries, Entry{
						Length: int32(w),
						Offset: headerSize + int64(i)*4,
					})
				}
			}
			parts[p] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []Entry
	for _, part := range parts {
		entries = append(entries, part...)
	}
	return entries, nil
}
