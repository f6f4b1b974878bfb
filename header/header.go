// Package header decodes the fixed 1000-byte TrackVis (.trk) file header
// and derives the affine that maps stored voxmm coordinates to RAS+ mm
// physical space.
//
// The rest of the loader treats the header as an opaque collaborator: it
// consumes counts, the point schema and the affine from here and never
// touches header bytes itself.
package header

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"strings"
)

// Header is the decoded TrackVis header.
type Header struct {
	// Dim is the image dimensions of the reference volume.
	Dim [3]int16
	// VoxelSize is the voxel size in mm along each axis.
	VoxelSize [3]float32
	// Origin is unused by TrackVis itself but carried through.
	Origin [3]float32
	// ScalarsPerPoint is the number of extra float32 scalars stored after
	// the x,y,z of every point.
	ScalarsPerPoint int
	// ScalarNames holds the names of the per-point scalars, if any.
	ScalarNames []string
	// PropertiesPerStreamline is the number of float32 properties stored
	// once after all points of a streamline.
	PropertiesPerStreamline int
	// PropertyNames holds the names of the per-streamline properties.
	PropertyNames []string
	// VoxToRAS is the voxel-to-RAS+ mm affine stored in the header.
	VoxToRAS [4][4]float32
	// VoxelOrder is the anatomical orientation of the voxel axes, e.g.
	// "LPS". An empty field is treated as "LPS", matching common readers.
	VoxelOrder string
	// StreamlineCount is the number of streamline records in the file.
	StreamlineCount int
	// ByteOrder is the byte order the header (and therefore the payload)
	// was written with.
	ByteOrder binary.ByteOrder
}

// Read opens path and decodes its header.
func Read(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Path: path, cause: err}
	}
	defer f.Close()

	buf := make([]byte, Size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, &FormatError{Path: path, cause: ErrTruncatedHeader}
	}

	h, err := Decode(buf)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = path
			return nil, fe
		}
		return nil, &FormatError{Path: path, cause: err}
	}
	return h, nil
}

// Decode parses the first Size bytes of data as a TrackVis header.
// Byte order is detected from the hdr_size field, which reads as 1000 only
// in the order the file was written with.
func Decode(data []byte) (*Header, error) {
	if len(data) < Size {
		return nil, &FormatError{cause: ErrTruncatedHeader}
	}

	order, err := detectByteOrder(data)
	if err != nil {
		return nil, &FormatError{cause: err}
	}

	var raw rawHeader
	if err := binary.Read(bytes.NewReader(data[:Size]), order, &raw); err != nil {
		return nil, &FormatError{cause: err}
	}

	if string(raw.IDString[:5]) != Magic {
		return nil, &FormatError{cause: ErrInvalidMagic}
	}
	if raw.Version != Version {
		return nil, &FormatError{cause: ErrUnsupportedVersion}
	}
	if raw.VoxToRAS[3][3] == 0 {
		return nil, &FormatError{cause: ErrNoAffine}
	}
	for _, vs := range raw.VoxelSize {
		if vs == 0 {
			return nil, &FormatError{cause: ErrBadVoxelSize}
		}
	}
	if raw.NScalars < 0 || raw.NProperties < 0 {
		return nil, &FormatError{cause: ErrBadSchema}
	}

	h := &Header{
		Dim:                     raw.Dim,
		VoxelSize:               raw.VoxelSize,
		Origin:                  raw.Origin,
		ScalarsPerPoint:         int(raw.NScalars),
		PropertiesPerStreamline: int(raw.NProperties),
		VoxToRAS:                raw.VoxToRAS,
		VoxelOrder:              cString(raw.VoxelOrder[:]),
		StreamlineCount:         int(raw.NCount),
		ByteOrder:               order,
	}
	if h.VoxelOrder == "" {
		h.VoxelOrder = "LPS"
	}
	if h.StreamlineCount < 0 {
		h.StreamlineCount = 0
	}

	for i := 0; i < h.ScalarsPerPoint && i < maxScalarNames; i++ {
		h.ScalarNames = append(h.ScalarNames, cString(raw.ScalarNames[i][:]))
	}
	for i := 0; i < h.PropertiesPerStreamline && i < maxScalarNames; i++ {
		h.PropertyNames = append(h.PropertyNames, cString(raw.PropertyNames[i][:]))
	}

	return h, nil
}

// detectByteOrder reads the hdr_size field (bytes 996..1000) in both byte
// orders and returns the one under which it equals Size.
func detectByteOrder(data []byte) (binary.ByteOrder, error) {
	field := data[Size-4 : Size]
	if binary.LittleEndian.Uint32(field) == Size {
		return binary.LittleEndian, nil
	}
	if binary.BigEndian.Uint32(field) == Size {
		return binary.BigEndian, nil
	}
	return nil, ErrBadHeaderSize
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}
