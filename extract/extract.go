// Package extract materializes requested streamlines from an indexed
// tractogram: it reads (or slices) exactly the bytes of each requested
// record, reshapes them into point rows, drops scalar columns and optionally
// applies an affine into physical space.
//
// For a batch of k requested ids it issues at most k reads: one ReadAt per
// record on the file path, one subslice per record on the in-memory path.
// Extraction is independent per id, so batches are partitioned across
// goroutines; output order always matches request order, duplicates
// included.
package extract

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/emanuele/load-trk/index"
	"github.com/emanuele/load-trk/model"
)

// ErrRecordOutOfBounds indicates an index entry pointing past the end of the
// payload, i.e. a stale or corrupt index.
var ErrRecordOutOfBounds = errors.New("streamline record extends past payload end")

// Options tunes an extraction batch.
type Options struct {
	// Affine, when non-nil, is applied to every extracted point. The R and
	// t blocks are pre-extracted by NewAffine once, not per point.
	Affine *Affine
	// Workers caps the batch parallelism; <= 0 means GOMAXPROCS.
	Workers int
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

// FromBytes extracts the requested streamlines from a memory-resident
// container image (mmap or a decompressed buffer), one subslice per id.
func FromBytes(data []byte, ix *index.Index, order binary.ByteOrder, ids []int64, opts Options) ([]model.Streamline, error) {
	return run(ids, ix, opts, func(e index.Entry) ([]float32, error) {
		off := e.DataOffset()
		n := int64(e.Length) * int64(ix.Schema().PointBytes())
		if off+n > int64(len(data)) {
			return nil, fmt.Errorf("%w: offset %d", ErrRecordOutOfBounds, off)
		}
		return floats32(data[off:off+n], order), nil
	})
}

// FromReaderAt extracts the requested streamlines through r, one ReadAt per
// id. r must allow concurrent ReadAt calls, which *os.File does; there is no
// shared cursor to contend on.
func FromReaderAt(r io.ReaderAt, ix *index.Index, order binary.ByteOrder, ids []int64, opts Options) ([]model.Streamline, error) {
	return run(ids, ix, opts, func(e index.Entry) ([]float32, error) {
		buf := make([]byte, int64(e.Length)*int64(ix.Schema().PointBytes()))
		if _, err := r.ReadAt(buf, e.DataOffset()); err != nil {
			return nil, err
		}
		return floats32(buf, order), nil
	})
}

// run fans a batch out by partitioning the id sequence across workers. Each
// slot of the result is written exactly once, so no locking is needed, and
// slot order preserves request order regardless of completion order.
func run(ids []int64, ix *index.Index, opts Options, record func(index.Entry) ([]float32, error)) ([]model.Streamline, error) {
	out := make([]model.Streamline, len(ids))
	width := ix.Schema().PointWidth()

	workers := opts.workers()
	if workers > len(ids) {
		workers = len(ids)
	}
	if workers == 0 {
		return out, nil
	}
	chunk := (len(ids) + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(ids))
		g.Go(func() error {
			for slot := lo; slot < hi; slot++ {
				id := ids[slot]
				if id < 0 || id >= int64(ix.Len()) {
					return &model.OutOfRangeError{ID: id, Count: ix.Len()}
				}
				floats, err := record(ix.Entry(int(id)))
				if err != nil {
					return err
				}

				s := reshape(floats, width)
				if opts.Affine != nil {
					opts.Affine.applyInPlace(s)
				}
				out[slot] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// reshape copies row-major length×width floats into a streamline, keeping
// only the three coordinate columns. The copy also detaches the result from
// any mmap-backed view.
func reshape(floats []float32, width int) model.Streamline {
	n := len(floats) / width
	s := make(model.Streamline, n)
	for i := 0; i < n; i++ {
		row := floats[i*width:]
		s[i] = model.Point{row[0], row[1], row[2]}
	}
	return s
}
