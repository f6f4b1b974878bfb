// Package model defines the core types shared across the trk loader.
//
//   - Point: one 3-D coordinate (float32, the container's native precision)
//   - Streamline: an ordered point sequence, the loader's canonical output
//   - OutOfRangeError: a requested streamline id outside the file
package model

import "fmt"

// Point is a single 3-D coordinate. Per-point scalars stored in the file are
// dropped before this representation; they are never returned to callers.
type Point [3]float32

// Streamline is an ordered sequence of points. Ownership passes to the
// caller when a loader operation returns it.
type Streamline []Point

// OutOfRangeError reports a requested streamline id outside
// [0, Count). It is surfaced before any I/O happens for that id.
type OutOfRangeError struct {
	ID    int64
	Count int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("streamline id %d out of range [0, %d)", e.ID, e.Count)
}

// Flatten concatenates streamlines into one flat point slice plus the length
// sequence needed to reconstruct them. Pure reshaping, no decoding.
func Flatten(streamlines []Streamline) ([]Point, []int32) {
	var total int
	for _, s := range streamlines {
		total += len(s)
	}

	points := make([]Point, 0, total)
	lengths := make([]int32, len(streamlines))
	for i, s := range streamlines {
		points = append(points, s...)
		lengths[i] = int32(len(s))
	}
	return points, lengths
}

// Split is the inverse of Flatten. It returns views into points, not copies.
func Split(points []Point, lengths []int32) ([]Streamline, error) {
	streamlines := make([]Streamline, len(lengths))
	var off int64
	for i, n := range lengths {
		if n < 0 || off+int64(n) > int64(len(points)) {
			return nil, fmt.Errorf("length sequence does not match %d points", len(points))
		}
		streamlines[i] = Streamline(points[off : off+int64(n)])
		off += int64(n)
	}
	if off != int64(len(points)) {
		return nil, fmt.Errorf("length sequence does not match %d points", len(points))
	}
	return streamlines, nil
}
