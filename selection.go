package trk

import (
	"math/rand"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Selection chooses which streamline ids a Load call returns.
type Selection interface {
	// resolve turns the selection into an explicit id sequence for a file
	// of the given streamline count. Order and duplicates are preserved in
	// the output; range validation happens afterwards, before any I/O.
	resolve(count int, rng *rand.Rand, logger *Logger) []int64
}

// All selects every streamline, in ascending id order.
func All() Selection { return allSelection{} }

type allSelection struct{}

func (allSelection) resolve(count int, _ *rand.Rand, _ *Logger) []int64 {
	ids := make([]int64, count)
	for i := range ids {
		ids[i] = int64(i)
	}
	return ids
}

// Explicit selects exactly the given ids, order and duplicates preserved.
func Explicit(ids ...int64) Selection {
	return explicitSelection{ids: ids}
}

type explicitSelection struct{ ids []int64 }

func (s explicitSelection) resolve(int, *rand.Rand, *Logger) []int64 {
	out := make([]int64, len(s.ids))
	copy(out, s.ids)
	return out
}

// Sample selects count ids drawn uniformly at random. Asking for more ids
// than the file holds without replacement is a usage error, not a failure:
// it logs a warning and proceeds with replacement.
func Sample(count int, withReplacement bool) Selection {
	return sampleSelection{count: count, withReplacement: withReplacement}
}

type sampleSelection struct {
	count           int
	withReplacement bool
}

func (s sampleSelection) resolve(count int, rng *rand.Rand, logger *Logger) []int64 {
	if s.count <= 0 || count == 0 {
		return nil
	}

	withReplacement := s.withReplacement
	if s.count > count && !withReplacement {
		logger.Warn("sampling more streamlines than the file holds, drawing with replacement",
			"requested", s.count,
			"available", count,
		)
		withReplacement = true
	}

	ids := make([]int64, s.count)
	if withReplacement {
		for i := range ids {
			ids[i] = int64(rng.Intn(count))
		}
		return ids
	}

	if s.count > count/2 {
		// Dense draw: a partial permutation is cheaper than rejection.
		perm := rng.Perm(count)
		for i := range ids {
			ids[i] = int64(perm[i])
		}
		return ids
	}

	// Sparse draw from a potentially huge id space: rejection sampling with
	// a compressed bitmap of seen ids instead of a full permutation array.
	seen := roaring64.New()
	for i := range ids {
		for {
			id := uint64(rng.Intn(count))
			if seen.CheckedAdd(id) {
				ids[i] = int64(id)
				break
			}
		}
	}
	return ids
}
