package extract

import "github.com/emanuele/load-trk/model"

// Affine is a 3-D affine transform with the rotation/scale block and the
// translation pre-extracted, so application is a plain multiply-add per
// point with no per-point matrix indexing.
type Affine struct {
	r [3][3]float32
	t [3]float32
}

// NewAffine extracts the leading 3x3 block and the translation column of a
// 4x4 homogeneous matrix.
func NewAffine(m [4][4]float32) Affine {
	var a Affine
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a.r[i][j] = m[i][j]
		}
		a.t[i] = m[i][3]
	}
	return a
}

// Apply returns R·p + t.
func (a Affine) Apply(p model.Point) model.Point {
	return model.Point{
		a.r[0][0]*p[0] + a.r[0][1]*p[1] + a.r[0][2]*p[2] + a.t[0],
		a.r[1][0]*p[0] + a.r[1][1]*p[1] + a.r[1][2]*p[2] + a.t[1],
		a.r[2][0]*p[0] + a.r[2][1]*p[1] + a.r[2][2]*p[2] + a.t[2],
	}
}

// applyInPlace transforms every point of s.
func (a Affine) applyInPlace(s model.Streamline) {
	for i := range s {
		s[i] = a.Apply(s[i])
	}
}
