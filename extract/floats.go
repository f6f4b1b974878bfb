package extract

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// isNativeLittleEndian reports whether float32 words can be viewed in place
// on this machine for a little-endian payload.
func isNativeLittleEndian() bool {
	var test uint16 = 0x0001
	return *(*byte)(unsafe.Pointer(&test)) == 1
}

var nativeLE = isNativeLittleEndian()

// floats32 exposes b as float32 values. When b is 4-byte aligned and the
// payload byte order matches the machine, the slice is a zero-copy view into
// b; otherwise the values are decoded into a fresh slice. Record offsets in
// a valid file are multiples of 4, so the view path is the common case for
// mmap-backed payloads.
func floats32(b []byte, order binary.ByteOrder) []float32 {
	n := len(b) / 4
	if n == 0 {
		return nil
	}

	if order == binary.ByteOrder(binary.LittleEndian) && nativeLE && uintptr(unsafe.Pointer(&b[0]))%4 == 0 {
		return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n)
	}

	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(order.Uint32(b[i*4:]))
	}
	return out
}
