// Package index discovers the layout of a tractogram payload: for every
// streamline record, its point count and the byte offset it starts at.
//
// Two strategies exist. The sequential walk is exact: it hops from length
// prefix to length prefix and is the mandatory fallback. The heuristic scan
// (scan.go) reinterprets the whole payload as uint32 words and picks length
// candidates by magnitude, which is bulk-parallel but can produce false
// positives; a candidate-count mismatch discards it in favor of the walk.
package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// lengthBytes is the size of the int32 point-count prefix of every record.
const lengthBytes = 4

// ErrInvalidLength indicates a non-positive length prefix, i.e. a corrupt
// record.
var ErrInvalidLength = errors.New("invalid streamline length")

// TruncatedError is returned when the payload ends before the declared
// number of streamline records has been walked.
type TruncatedError struct {
	// Want is the declared streamline count, Got how many records were
	// complete before the payload ran out.
	Want, Got int
	// Offset is the byte offset the walk had reached.
	Offset int64
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated stream: got %d of %d streamlines at offset %d", e.Got, e.Want, e.Offset)
}

// Schema describes the fixed per-record layout beyond the 3-D coordinates.
type Schema struct {
	// ScalarsPerPoint is the number of float32 scalars stored after the
	// x,y,z of every point.
	ScalarsPerPoint int
	// PropertiesPerStreamline is the number of float32 properties stored
	// once per record, after all its points.
	PropertiesPerStreamline int
}

// PointWidth is the number of float32 values per stored point.
func (s Schema) PointWidth() int { return 3 + s.ScalarsPerPoint }

// PointBytes is the byte size of one stored point.
func (s Schema) PointBytes() int { return 4 * s.PointWidth() }

// PropertyBytes is the byte size of the per-record property block.
func (s Schema) PropertyBytes() int { return 4 * s.PropertiesPerStreamline }

// RecordSize is the total byte size of a record of the given length,
// including the length prefix.
func (s Schema) RecordSize(length int32) int64 {
	return lengthBytes + int64(length)*int64(s.PointBytes()) + int64(s.PropertyBytes())
}

// Entry locates one streamline record.
type Entry struct {
	// Length is the record's point count.
	Length int32
	// Offset is the byte offset of the record's length prefix.
	Offset int64
}

// DataOffset is the byte offset of the record's first coordinate float.
func (e Entry) DataOffset() int64 { return e.Offset + lengthBytes }

// Index is the immutable per-streamline layout of one file, positionally
// keyed by streamline id.
type Index struct {
	entries []Entry
	schema  Schema
}

// Len returns the number of indexed streamlines.
func (ix *Index) Len() int { return len(ix.entries) }

// Entry returns the entry for streamline id i. The caller guarantees i is
// in range.
func (ix *Index) Entry(i int) Entry { return ix.entries[i] }

// Schema returns the record schema the index was built with.
func (ix *Index) Schema() Schema { return ix.schema }

// Lengths returns the point count of every streamline in id order.
func (ix *Index) Lengths() []int32 {
	lengths := make([]int32, len(ix.entries))
	for i, e := range ix.entries {
		lengths[i] = e.Length
	}
	return lengths
}

// PayloadBytes returns the structural size of all indexed records. For a
// valid file it equals the file size minus the header.
func (ix *Index) PayloadBytes() int64 {
	var total int64
	for _, e := range ix.entries {
		total += ix.schema.RecordSize(e.Length)
	}
	return total
}

// BuildSequential walks records one by one through r: read a length prefix,
// record it, seek over the points and properties. Exact and always correct;
// O(count) small reads with a strict data dependency between steps.
func BuildSequential(r io.ReadSeeker, order binary.ByteOrder, headerSize int64, count int, schema Schema) (*Index, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(headerSize, io.SeekStart); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, count)
	offset := headerSize
	var buf [lengthBytes]byte

	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, &TruncatedError{Want: count, Got: i, Offset: offset}
			}
			return nil, err
		}
		length := int32(order.Uint32(buf[:]))
		if length <= 0 {
			return nil, fmt.Errorf("%w: %d at offset %d", ErrInvalidLength, length, offset)
		}

		entries = append(entries, Entry{Length: length, Offset: offset})

		offset += schema.RecordSize(length)
		if offset > size {
			return nil, &TruncatedError{Want: count, Got: i, Offset: offset}
		}
		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
	}

	return &Index{entries: entries, schema: schema}, nil
}

// BuildSequentialBytes is the sequential walk over a memory-resident
// container image (mmap or a decompressed buffer).
func BuildSequentialBytes(data []byte, order binary.ByteOrder, headerSize int64, count int, schema Schema) (*Index, error) {
	entries := make([]Entry, 0, count)
	offset := headerSize
	size := int64(len(data))

	for i := 0; i < count; i++ {
		if offset+lengthBytes > size {
			return nil, &TruncatedError{Want: count, Got: i, Offset: offset}
		}
		length := int32(order.Uint32(data[offset:]))
		if length <= 0 {
			return nil, fmt.Errorf("%w: %d at offset %d", ErrInvalidLength, length, offset)
		}

		entries = append(entries, Entry{Length: length, Offset: offset})

		offset += schema.RecordSize(length)
		if offset > size {
			return nil, &TruncatedError{Want: count, Got: i, Offset: offset}
		}
	}

	return &Index{entries: entries, schema: schema}, nil
}
