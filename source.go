package trk

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/emanuele/load-trk/internal/mmap"
)

// source gives Load uniform access to the container bytes. Plain files are
// memory-mapped when possible, with an open file handle kept for seek/read
// fallback. Compressed files (.gz, .zst, .lz4) are decompressed fully into
// memory, since a compressed stream cannot serve random record access.
type source struct {
	data    []byte // memory-resident image, nil when only the file handle exists
	file    *os.File
	mapping *mmap.Mapping
	size    int64
}

func openSource(path string, logger *Logger) (*source, error) {
	switch filepath.Ext(path) {
	case ".gz":
		return openCompressed(path, func(r io.Reader) (io.Reader, func(), error) {
			zr, err := gzip.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return zr, func() { zr.Close() }, nil
		})
	case ".zst":
		return openCompressed(path, func(r io.Reader) (io.Reader, func(), error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return zr, zr.Close, nil
		})
	case ".lz4":
		return openCompressed(path, func(r io.Reader) (io.Reader, func(), error) {
			return lz4.NewReader(r), func() {}, nil
		})
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	src := &source{file: f, size: fi.Size()}
	m, err := mmap.Open(path)
	if err != nil {
		// Seek/read still works; only the zero-copy paths are lost.
		logger.Debug("mmap failed, using buffered file access", "path", path, "error", err)
		return src, nil
	}
	src.mapping = m
	src.data = m.Bytes()
	return src, nil
}

func openCompressed(path string, wrap func(io.Reader) (io.Reader, func(), error)) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, closeReader, err := wrap(f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer closeReader()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return &source{data: data, size: int64(len(data))}, nil
}

// readerAt returns a ReaderAt over the container, preferring the file
// handle. *os.File.ReadAt is safe for concurrent use.
func (s *source) readerAt() io.ReaderAt {
	if s.file != nil {
		return s.file
	}
	return bytes.NewReader(s.data)
}

// advise hints the kernel about the upcoming access pattern, when the
// container is memory-mapped.
func (s *source) advise(pattern mmap.AccessPattern) {
	if s.mapping != nil {
		_ = s.mapping.Advise(pattern)
	}
}

func (s *source) Close() error {
	var firstErr error
	if s.mapping != nil {
		firstErr = s.mapping.Close()
		s.mapping = nil
		s.data = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.file = nil
	}
	return firstErr
}
