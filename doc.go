// Package trk provides fast random access to streamlines in TrackVis (.trk)
// tractography files.
//
// A .trk file stores millions of variable-length 3-D point sequences behind
// a fixed header, each record prefixed by its point count. Generic parsers
// decode every record even when the caller wants a handful of them. This
// loader instead reconstructs the file's layout first (exactly, by hopping
// from length prefix to length prefix, or heuristically, by bulk-scanning
// the payload as uint32 words) and then reads only the requested records.
//
// # Quick Start
//
// Load everything:
//
//	res, err := trk.Load("tract.trk", trk.All(), true)
//	for _, s := range res.Streamlines { ... }
//
// Load a subset by id, order and duplicates preserved:
//
//	res, err := trk.Load("tract.trk", trk.Explicit(3, 1, 3, 0), false)
//
// Sample 1000 streamlines reproducibly:
//
//	res, err := trk.Load("tract.trk", trk.Sample(1000, false), true,
//	    trk.WithRandSeed(42))
//
// # Strategies
//
// StrategySequential walks records one by one and is always correct.
// StrategyHeuristic scans the whole payload for plausible length prefixes in
// one bulk parallel pass; if the candidate count does not match the header's
// streamline count the scan is discarded and the sequential walk runs
// instead, so the heuristic can only ever cost time, never correctness.
// StrategyAuto (the default) picks between them by payload size.
//
// # Coordinates
//
// Points are stored in TrackVis voxmm space. With applyAffine true, Load
// returns RAS+ mm coordinates using the affine derived from the header;
// per-point scalars and per-streamline properties are skipped, never
// returned.
package trk
