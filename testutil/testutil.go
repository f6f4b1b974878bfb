// Package testutil provides a deterministic RNG and a synthetic TrackVis
// file builder for tests.
package testutil

import (
	"encoding/binary"
	"math"
	"math/rand"
	"sync"
)

func float32bits(v float32) uint32 { return math.Float32bits(v) }

// RNG is a seeded random number generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Streamline is one synthetic record: points plus optional per-point scalar
// columns and per-record properties.
type Streamline struct {
	Points     [][3]float32
	Scalars    [][]float32 // one row per point, each row File.NScalars wide
	Properties []float32   // File.NProperties values
}

// RandomStreamlines generates n streamlines with point counts in
// [minLen, maxLen] and coordinates in the tens-of-millimetres range, i.e.
// float32 bit patterns far above the heuristic scan threshold.
func RandomStreamlines(rng *RNG, n, minLen, maxLen int) []Streamline {
	streamlines := make([]Streamline, n)
	for i := range streamlines {
		length := minLen + rng.Intn(maxLen-minLen+1)
		points := make([][3]float32, length)
		for j := range points {
			for k := 0; k < 3; k++ {
				points[j][k] = 10 + 150*rng.Float32()
			}
		}
		streamlines[i] = Streamline{Points: points}
	}
	return streamlines
}

// File assembles a synthetic TrackVis container in memory.
//
// The zero-value header fields default to voxel size 1, voxel order "RAS",
// dim 2x2x2 and a vox_to_ras that is the identity plus a +0.5 translation.
// That choice makes the derived voxmm-to-RASMM affine exactly the identity,
// which keeps coordinate assertions simple.
type File struct {
	ByteOrder     binary.ByteOrder // nil means little-endian
	Dim           [3]int16
	VoxelSize     [3]float32
	Origin        [3]float32
	VoxelOrder    string
	VoxToRAS      [4][4]float32
	NScalars      int
	NProperties   int
	ScalarNames   []string
	PropertyNames []string
	Streamlines   []Streamline

	// CountOverride, when non-nil, is written to n_count instead of
	// len(Streamlines). Used to fabricate truncated files.
	CountOverride *int
}

// NewFile returns a File with identity-affine defaults and the given
// streamlines.
func NewFile(streamlines ...Streamline) *File {
	f := &File{
		Dim:        [3]int16{2, 2, 2},
		VoxelSize:  [3]float32{1, 1, 1},
		VoxelOrder: "RAS",
		VoxToRAS: [4][4]float32{
			{1, 0, 0, 0.5},
			{0, 1, 0, 0.5},
			{0, 0, 1, 0.5},
			{0, 0, 0, 1},
		},
		Streamlines: streamlines,
	}
	return f
}

const headerSize = 1000

// Bytes encodes the file: 1000-byte header followed by the records.
func (f *File) Bytes() []byte {
	order := f.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}

	buf := make([]byte, headerSize)
	copy(buf, "TRACK\x00")
	for i := 0; i < 3; i++ {
		order.PutUint16(buf[6+2*i:], uint16(f.Dim[i]))
		order.PutUint32(buf[12+4*i:], float32bits(f.VoxelSize[i]))
		order.PutUint32(buf[24+4*i:], float32bits(f.Origin[i]))
	}
	order.PutUint16(buf[36:], uint16(f.NScalars))
	for i, name := range f.ScalarNames {
		copy(buf[38+20*i:38+20*(i+1)], name)
	}
	order.PutUint16(buf[238:], uint16(f.NProperties))
	for i, name := range f.PropertyNames {
		copy(buf[240+20*i:240+20*(i+1)], name)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			order.PutUint32(buf[440+16*i+4*j:], float32bits(f.VoxToRAS[i][j]))
		}
	}
	copy(buf[948:952], f.VoxelOrder)

	count := len(f.Streamlines)
	if f.CountOverride != nil {
		count = *f.CountOverride
	}
	order.PutUint32(buf[988:], uint32(count))
	order.PutUint32(buf[992:], 2) // version
	order.PutUint32(buf[996:], headerSize)

	for _, s := range f.Streamlines {
		var rec [4]byte
		order.PutUint32(rec[:], uint32(len(s.Points)))
		buf = append(buf, rec[:]...)
		for j, p := range s.Points {
			buf = appendFloats(buf, order, p[:]...)
			if f.NScalars > 0 {
				buf = appendFloats(buf, order, s.Scalars[j]...)
			}
		}
		if f.NProperties > 0 {
			buf = appendFloats(buf, order, s.Properties...)
		}
	}
	return buf
}

func appendFloats(buf []byte, order binary.ByteOrder, vals ...float32) []byte {
	var b [4]byte
	for _, v := range vals {
		order.PutUint32(b[:], float32bits(v))
		buf = append(buf, b[:]...)
	}
	return buf
}
