package trk

import (
	"errors"
	"io"
	"time"

	"github.com/emanuele/load-trk/extract"
	"github.com/emanuele/load-trk/header"
	"github.com/emanuele/load-trk/index"
	"github.com/emanuele/load-trk/internal/mmap"
	"github.com/emanuele/load-trk/model"
)

// Point and Streamline are the loader's canonical output types.
type (
	Point      = model.Point
	Streamline = model.Streamline
)

// Result is the outcome of a Load call.
type Result struct {
	// Streamlines holds one entry per requested id, in request order;
	// duplicate ids appear once per occurrence.
	Streamlines []Streamline
	// Header is the decoded file header.
	Header *header.Header
	// Affine is the derived voxmm-to-RASMM transform, whether or not it
	// was applied.
	Affine [4][4]float32
	// Lengths is the point count of each returned streamline.
	Lengths []int32
	// IDs is the resolved id sequence the result is ordered by.
	IDs []int64
}

// Load reads the streamlines selected by sel from the TrackVis file at
// path. When applyAffine is true, points are transformed into RAS+ mm
// space; otherwise the stored voxmm coordinates are returned bit-for-bit.
//
// The file's internal layout is reconstructed on every call, by the exact
// sequential walk or the heuristic bulk scan depending on the configured
// strategy; the heuristic silently falls back to the walk when its result
// cannot be trusted. Extraction then touches only the requested records, so
// loading a small subset of a multi-million-streamline file does not pay
// for a full parse.
//
// Paths ending in .gz, .zst or .lz4 are decompressed into memory first.
func Load(path string, sel Selection, applyAffine bool, opts ...Option) (*Result, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger.WithPath(path)

	src, err := openSource(path, logger)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	hdr, err := readHeader(src, path)
	if err != nil {
		return nil, err
	}
	count := hdr.StreamlineCount
	logger = logger.WithCount(count)
	schema := index.Schema{
		ScalarsPerPoint:         hdr.ScalarsPerPoint,
		PropertiesPerStreamline: hdr.PropertiesPerStreamline,
	}

	affine, err := hdr.RasMMAffine()
	if err != nil {
		return nil, header.NewFormatError(path, err)
	}

	ids := sel.resolve(count, o.rng, logger)
	for _, id := range ids {
		if id < 0 || id >= int64(count) {
			return nil, &model.OutOfRangeError{ID: id, Count: count}
		}
	}

	start := time.Now()
	ix, used, err := buildIndex(src, hdr, count, schema, o, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("length index built",
		"strategy", used.String(),
		"elapsed", time.Since(start),
	)

	extractOpts := extract.Options{Workers: o.workers}
	if applyAffine {
		a := extract.NewAffine(affine)
		extractOpts.Affine = &a
	}

	start = time.Now()
	src.advise(mmap.AccessRandom)
	var streamlines []Streamline
	if src.data != nil {
		streamlines, err = extract.FromBytes(src.data, ix, hdr.ByteOrder, ids, extractOpts)
	} else {
		streamlines, err = extract.FromReaderAt(src.readerAt(), ix, hdr.ByteOrder, ids, extractOpts)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("streamlines extracted",
		"requested", len(ids),
		"apply_affine", applyAffine,
		"elapsed", time.Since(start),
	)

	lengths := make([]int32, len(ids))
	for i, id := range ids {
		lengths[i] = ix.Entry(int(id)).Length
	}

	return &Result{
		Streamlines: streamlines,
		Header:      hdr,
		Affine:      affine,
		Lengths:     lengths,
		IDs:         ids,
	}, nil
}

// readHeader decodes the header from the source and checks it is consistent
// with the container's actual size.
func readHeader(src *source, path string) (*header.Header, error) {
	if src.size < header.Size {
		return nil, header.NewFormatError(path, header.ErrTruncatedHeader)
	}

	var buf []byte
	if src.data != nil {
		buf = src.data[:header.Size]
	} else {
		buf = make([]byte, header.Size)
		if _, err := src.readerAt().ReadAt(buf, 0); err != nil {
			return nil, err
		}
	}

	hdr, err := header.Decode(buf)
	if err != nil {
		var fe *header.FormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return nil, err
	}
	return hdr, nil
}

// buildIndex reconstructs the per-streamline layout and reports the
// strategy that produced it. Memory-resident containers use the strategy
// dispatcher with heuristic fallback; when only a file handle is available
// the exact sequential walk is the only option.
func buildIndex(src *source, hdr *header.Header, count int, schema index.Schema, o *options, logger *Logger) (*index.Index, Strategy, error) {
	if src.data != nil {
		src.advise(mmap.AccessSequential)
		return index.Build(src.data, hdr.ByteOrder, header.Size, count, schema, index.Options{
			Strategy:  o.strategy,
			Threshold: o.threshold,
			Workers:   o.workers,
			Logger:    logger.Logger,
		})
	}

	if o.strategy == StrategyHeuristic {
		logger.Debug("heuristic scan needs a memory-resident payload, using sequential walk")
	}
	rs, ok := src.readerAt().(io.ReadSeeker)
	if !ok {
		rs = io.NewSectionReader(src.readerAt(), 0, src.size)
	}
	ix, err := index.BuildSequential(rs, hdr.ByteOrder, header.Size, count, schema)
	return ix, StrategySequential, err
}
