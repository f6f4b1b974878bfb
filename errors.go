package trk

import (
	"github.com/emanuele/load-trk/header"
	"github.com/emanuele/load-trk/index"
	"github.com/emanuele/load-trk/model"
)

// Error types surfaced by Load, aliased here so callers matching with
// errors.As rarely need the subpackages:
//
//   - FormatError: the file is not a decodable TrackVis v2 container
//   - TruncatedError: the payload ends before the declared record count
//   - OutOfRangeError: a requested id is outside [0, streamline count);
//     raised before any I/O happens for that id
//
// A heuristic-scan mismatch is not an error from Load's point of view: it
// falls back to the sequential walk internally and only the walk's outcome
// is ever surfaced.
type (
	FormatError     = header.FormatError
	TruncatedError  = index.TruncatedError
	OutOfRangeError = model.OutOfRangeError
)
