package header

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// axisLabels maps anatomical axis codes to (axis, direction): R/L on x,
// A/P on y, S/I on z. The second code of each pair is the positive end.
var axisLabels = [3][2]byte{{'L', 'R'}, {'P', 'A'}, {'I', 'S'}}

// orientation describes, for each input axis, which output axis it maps to
// and with which sign.
type orientation [3]struct {
	axis int
	flip float64
}

// RasMMAffine returns the 4x4 affine that maps the file's stored voxmm
// coordinates to RAS+ mm space.
//
// The chain reproduces the reference TrackVis reader semantics: scale voxmm
// back to voxel, shift by half a voxel (TrackVis anchors (0,0,0) at the
// voxel corner), reorient from the header's voxel_order to the orientation
// implied by vox_to_ras, then apply vox_to_ras itself.
func (h *Header) RasMMAffine() ([4][4]float32, error) {
	var zero [4][4]float32

	affine := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		affine.Set(i, i, 1/float64(h.VoxelSize[i]))
		affine.Set(i, 3, -0.5)
	}
	affine.Set(3, 3, 1)

	voxToRAS := denseFromHeader(h.VoxToRAS)

	headerOrnt, err := axcodesToOrientation(h.VoxelOrder)
	if err != nil {
		return zero, err
	}
	affineOrnt, err := affineOrientation(voxToRAS)
	if err != nil {
		return zero, err
	}
	ornt, err := orientationTransform(headerOrnt, affineOrnt)
	if err != nil {
		return zero, err
	}

	m := invOrientationAffine(ornt, h.Dim)
	affine.Mul(m, affine)
	affine.Mul(voxToRAS, affine)

	var out [4][4]float32
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = float32(affine.At(i, j))
		}
	}
	return out, nil
}

// axcodesToOrientation parses a voxel order string like "LPS" or "RAS".
func axcodesToOrientation(codes string) (orientation, error) {
	var ornt orientation
	if len(codes) < 3 {
		return ornt, fmt.Errorf("voxel order %q: %w", codes, errBadOrientation)
	}
	for i := 0; i < 3; i++ {
		c := codes[i]
		found := false
		for axis, pair := range axisLabels {
			if c == pair[0] || c == pair[1] {
				ornt[i].axis = axis
				ornt[i].flip = -1
				if c == pair[1] {
					ornt[i].flip = 1
				}
				found = true
				break
			}
		}
		if !found {
			return ornt, fmt.Errorf("voxel order %q: %w", codes, errBadOrientation)
		}
	}
	return ornt, nil
}

var errBadOrientation = errors.New("unrecognized axis orientation")

// affineOrientation determines the closest axis orientation of a 4x4 affine:
// for each input axis, the dominant output axis and its sign. The rotation
// part is orthogonalized through an SVD first so shears and anisotropic
// zooms do not skew the vote.
func affineOrientation(affine *mat.Dense) (orientation, error) {
	var ornt orientation

	rs := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		zoom := math.Hypot(math.Hypot(affine.At(0, j), affine.At(1, j)), affine.At(2, j))
		if zoom == 0 {
			zoom = 1
		}
		for i := 0; i < 3; i++ {
			rs.Set(i, j, affine.At(i, j)/zoom)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(rs, mat.SVDThin) {
		return ornt, fmt.Errorf("vox_to_ras: %w", ErrNoAffine)
	}
	values := svd.Values(nil)
	tol := values[0] * 3 * 2.220446049250313e-16
	for _, s := range values {
		if s <= tol {
			return ornt, fmt.Errorf("vox_to_ras is degenerate: %w", ErrNoAffine)
		}
	}

	var u, v, r mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	r.Mul(&u, v.T())

	taken := [3]bool{}
	for inAx := 0; inAx < 3; inAx++ {
		outAx, best := -1, 0.0
		for i := 0; i < 3; i++ {
			if taken[i] {
				continue
			}
			if a := math.Abs(r.At(i, inAx)); a > best {
				outAx, best = i, a
			}
		}
		if outAx < 0 {
			return ornt, fmt.Errorf("vox_to_ras is degenerate: %w", ErrNoAffine)
		}
		taken[outAx] = true
		ornt[inAx].axis = outAx
		ornt[inAx].flip = 1
		if r.At(outAx, inAx) < 0 {
			ornt[inAx].flip = -1
		}
	}
	return ornt, nil
}

// orientationTransform computes the orientation that carries start to end.
func orientationTransform(start, end orientation) (orientation, error) {
	var result orientation
	for endIn, e := range end {
		found := false
		for startIn, s := range start {
			if e.axis != s.axis {
				continue
			}
			result[startIn].axis = endIn
			result[startIn].flip = s.flip * e.flip
			found = true
			break
		}
		if !found {
			return result, fmt.Errorf("disjoint orientations: %w", errBadOrientation)
		}
	}
	return result, nil
}

// invOrientationAffine builds the 4x4 affine undoing the given orientation
// for a volume of the given dimensions: an axis permutation plus, for every
// flipped axis, a reflection about the volume center.
func invOrientationAffine(ornt orientation, dim [3]int16) *mat.Dense {
	undoReorder := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		undoReorder.Set(i, ornt[i].axis, 1)
	}
	undoReorder.Set(3, 3, 1)

	undoFlip := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		undoFlip.Set(i, i, ornt[i].flip)
		center := -(float64(dim[i]) - 1) / 2
		undoFlip.Set(i, 3, ornt[i].flip*center-center)
	}
	undoFlip.Set(3, 3, 1)

	m := mat.NewDense(4, 4, nil)
	m.Mul(undoFlip, undoReorder)
	return m
}

func denseFromHeader(a [4][4]float32) *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m.Set(i, j, float64(a[i][j]))
		}
	}
	return m
}
