package trk

import "github.com/emanuele/load-trk/model"

// Flatten concatenates streamlines into one flat point slice plus the
// length sequence needed to reconstruct them, for callers that want a
// single contiguous buffer instead of the canonical per-streamline form.
func Flatten(streamlines []Streamline) ([]Point, []int32) {
	return model.Flatten(streamlines)
}

// Split is the inverse of Flatten.
func Split(points []Point, lengths []int32) ([]Streamline, error) {
	return model.Split(points, lengths)
}
