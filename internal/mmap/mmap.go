// Package mmap provides read-only memory mapping of tractogram files.
//
// Mapping a file gives the heuristic length scan and the extractor a single
// flat byte view of the whole container, so both can slice streamline records
// zero-copy instead of issuing per-record reads. Tractograms can be several
// gigabytes, which is exactly the regime where mapping beats buffered I/O.
//
// The mapping is read-only and safe for concurrent readers. Close is
// idempotent; slices derived from Bytes() must not be used after Close.
package mmap

import (
	"errors"
	"os"
	"sync/atomic"

	"github.com/emanuele/load-trk/internal/conv"
)

var (
	// ErrClosed is returned when accessing a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the file size cannot be mapped.
	ErrInvalidSize = errors.New("mmap: invalid file size")
)

// AccessPattern hints the kernel about the expected read pattern.
type AccessPattern int

const (
	// AccessDefault gives no specific advice.
	AccessDefault AccessPattern = iota
	// AccessSequential expects a front-to-back pass (bulk length scan).
	AccessSequential
	// AccessRandom expects scattered reads (subset extraction).
	AccessRandom
)

// Mapping is a read-only memory-mapped file. It owns the mapped region and
// unmaps it on Close.
type Mapping struct {
	data   []byte
	size   int
	closed atomic.Bool
	unmap  func([]byte) error
}

// Open maps the file at path read-only. An empty file yields a mapping with
// no bytes, not an error.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	if fi.Size() == 0 {
		return &Mapping{}, nil
	}
	size, err := conv.Int64ToInt(fi.Size())
	if err != nil {
		return nil, ErrInvalidSize
	}

	data, unmapFunc, err := osMap(f, size)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		size:  size,
		unmap: unmapFunc,
	}, nil
}

// Close unmaps the region. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Bytes returns the mapped contents. The slice is valid only until Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Advise passes an access-pattern hint to the kernel. On platforms without
// madvise this is a no-op. Advisory only; failures other than alignment are
// returned for visibility but may be ignored by callers.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if len(m.data) == 0 {
		return nil
	}
	return osAdvise(m.data, pattern)
}
