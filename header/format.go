package header

import "errors"

const (
	// Magic is the id string at the start of every TrackVis file.
	Magic = "TRACK"
	// Size is the fixed byte size of the TrackVis header. The first
	// streamline record starts at this offset.
	Size = 1000
	// Version is the supported TrackVis format version. Version 1 files
	// carry no vox_to_ras matrix, so no physical-space affine can be
	// recovered from them.
	Version = 2

	// maxScalarNames is the fixed capacity of the scalar/property name
	// tables in the header.
	maxScalarNames = 10
	nameLen        = 20
)

var (
	// ErrInvalidMagic indicates the file does not start with "TRACK".
	ErrInvalidMagic = errors.New("invalid magic")
	// ErrUnsupportedVersion indicates a TrackVis version other than 2.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrBadHeaderSize indicates the stored hdr_size is not 1000 in either
	// byte order, which is how corrupt or foreign files surface.
	ErrBadHeaderSize = errors.New("bad header size")
	// ErrTruncatedHeader indicates fewer than 1000 bytes are available.
	ErrTruncatedHeader = errors.New("truncated header")
	// ErrNoAffine indicates a zeroed vox_to_ras matrix, so the mapping to
	// physical coordinates is undefined.
	ErrNoAffine = errors.New("vox_to_ras matrix is undefined")
	// ErrBadVoxelSize indicates a zero voxel size, which makes the
	// voxmm-to-voxel scaling undefined.
	ErrBadVoxelSize = errors.New("voxel size is zero")
	// ErrBadSchema indicates a negative scalar or property count, which
	// would make the record layout undefined.
	ErrBadSchema = errors.New("negative scalar or property count")
)

// FormatError wraps a header decoding failure with the path it came from.
//
// The underlying condition (e.g. ErrInvalidMagic) can be accessed via
// errors.Unwrap / errors.Is.
type FormatError struct {
	Path  string
	cause error
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return "trk header: " + e.cause.Error()
	}
	return "trk header: " + e.Path + ": " + e.cause.Error()
}

func (e *FormatError) Unwrap() error { return e.cause }

// NewFormatError wraps cause as a header format failure for path.
func NewFormatError(path string, cause error) *FormatError {
	return &FormatError{Path: path, cause: cause}
}

// rawHeader is the exact 1000-byte on-disk layout of a TrackVis header.
// See http://www.trackvis.org/docs/?subsect=fileformat
type rawHeader struct {
	IDString                [6]byte
	Dim                     [3]int16
	VoxelSize               [3]float32
	Origin                  [3]float32
	NScalars                int16
	ScalarNames             [maxScalarNames][nameLen]byte
	NProperties             int16
	PropertyNames           [maxScalarNames][nameLen]byte
	VoxToRAS                [4][4]float32
	Reserved                [444]byte
	VoxelOrder              [4]byte
	Pad2                    [4]byte
	ImageOrientationPatient [6]float32
	Pad1                    [2]byte
	InvertX                 byte
	InvertY                 byte
	InvertZ                 byte
	SwapXY                  byte
	SwapYZ                  byte
	SwapZX                  byte
	NCount                  int32
	Version                 int32
	HdrSize                 int32
}
