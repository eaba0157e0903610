// Package camera holds the camera-to-world transform extracted from a target
// process and the per-frame result record written for it.
package camera

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Status flags are additive: AllGood is PositionGood|RotationGood.
type Status uint8

const (
	Uninitialized    Status = 0
	PositionGood     Status = 1
	RotationGood     Status = 2
	AllGood          Status = PositionGood | RotationGood
	PartiallyUpdated Status = 4
)

// Has reports whether every bit of flag is set
func (s Status) Has(flag Status) bool {
	return flag != 0 && s&flag == flag
}

func (s Status) String() string {
	if s == Uninitialized {
		return "Uninitialized"
	}
	var parts []string
	switch {
	case s.Has(AllGood):
		parts = append(parts, "AllGood")
	case s.Has(PositionGood):
		parts = append(parts, "PositionGood")
	case s.Has(RotationGood):
		parts = append(parts, "RotationGood")
	}
	if s.Has(PartiallyUpdated) {
		parts = append(parts, "PartiallyUpdated")
	}
	if rest := s &^ (AllGood | PartiallyUpdated); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// PositionColumn is the transform column holding the world-space camera position
const PositionColumn = 3

// Transform is a 3x4 camera-to-world matrix stored row-major
type Transform [12]float64

// TransformFromRowMajor builds a transform from the first 12 values of vals
func TransformFromRowMajor(vals []float64) (Transform, error) {
	var t Transform
	if len(vals) < len(t) {
		return t, fmt.Errorf("transform needs 12 values, got %d", len(vals))
	}
	copy(t[:], vals)
	return t, nil
}

func (t Transform) At(row, col int) float64 {
	return t[row*4+col]
}

func (t *Transform) Set(row, col int, v float64) {
	t[row*4+col] = v
}

func (t Transform) Column(col int) [3]float64 {
	return [3]float64{t.At(0, col), t.At(1, col), t.At(2, col)}
}

func (t *Transform) SetColumn(col int, v [3]float64) {
	for row := 0; row < 3; row++ {
		t.Set(row, col, v[row])
	}
}

// Position returns the world-space camera position
func (t Transform) Position() [3]float64 {
	return t.Column(PositionColumn)
}

// Basis is a 4x4 change-of-basis matrix stored row-major
type Basis [16]float64

// Identity is the basis that leaves a transform unchanged
var Identity = Basis{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

func (b Basis) IsIdentity() bool {
	return b == Identity
}

// Apply returns t*b, re-expressing the transform's camera axes in the basis b
func (t Transform) Apply(b Basis) Transform {
	if b.IsIdentity() {
		return t
	}
	ext := mat.NewDense(3, 4, append([]float64(nil), t[:]...))
	rot := mat.NewDense(4, 4, append([]float64(nil), b[:]...))

	var out mat.Dense
	out.Mul(ext, rot)

	var r Transform
	copy(r[:], out.RawMatrix().Data)
	return r
}

// FromPositionAndLookDir builds a level camera at pos looking along dir,
// with world z up. The look direction becomes the second column.
func FromPositionAndLookDir(pos, dir [3]float64) Transform {
	var t Transform
	t.SetColumn(PositionColumn, pos)

	look := normalize(dir)
	t.SetColumn(1, look)

	right := normalize([3]float64{look[1], -look[0], 0})
	t.SetColumn(0, right)
	t.SetColumn(2, cross(right, look))
	return t
}

func normalize(v [3]float64) [3]float64 {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n == 0 {
		return v
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Result is what one acquisition produced. Field of view values are in
// degrees; zero or negative means unknown.
type Result struct {
	Status    Status
	Transform Transform
	FovV      float64
	FovH      float64
}

// HasIntrinsics reports whether any field of view is known
func (r Result) HasIntrinsics() bool {
	return r.FovV > 0 || r.FovH > 0
}

type record struct {
	Extrinsic *Transform `json:"extrinsic_cam2world,omitempty"`
	WIP       *Transform `json:"extrinsic_WIP,omitempty"`
	FovV      *float64   `json:"fov_v_degrees,omitempty"`
	FovH      *float64   `json:"fov_h_degrees,omitempty"`
}

// MarshalJSON writes the transform under "extrinsic_cam2world" when the
// status is AllGood and under "extrinsic_WIP" otherwise.
func (r Result) MarshalJSON() ([]byte, error) {
	var rec record
	t := r.Transform
	if r.Status == AllGood {
		rec.Extrinsic = &t
	} else {
		rec.WIP = &t
	}
	if r.FovV > 0 {
		v := r.FovV
		rec.FovV = &v
	}
	if r.FovH > 0 {
		h := r.FovH
		rec.FovH = &h
	}
	return json.Marshal(rec)
}

// UnmarshalJSON reads a record written by MarshalJSON. The status of an
// "extrinsic_WIP" record is PartiallyUpdated.
func (r *Result) UnmarshalJSON(b []byte) error {
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	*r = Result{}
	switch {
	case rec.Extrinsic != nil:
		r.Status = AllGood
		r.Transform = *rec.Extrinsic
	case rec.WIP != nil:
		r.Status = PartiallyUpdated
		r.Transform = *rec.WIP
	}
	if rec.FovV != nil {
		r.FovV = *rec.FovV
	}
	if rec.FovH != nil {
		r.FovH = *rec.FovH
	}
	return nil
}
