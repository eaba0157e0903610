// Package profile describes, per supported executable, where its camera
// lives and how to decode it. Profiles are plain data; the acquire package
// interprets them.
package profile

import (
	"fmt"
	"strings"

	"gamecam/camera"
	"gamecam/countbuf"
	"gamecam/process/memory_map"
)

// AcquisitionKind selects how the camera is located
type AcquisitionKind int

const (
	FixedOffsetSingleRead AcquisitionKind = iota + 1
	FixedOffsetColumnwiseRead
	ScriptedBufferScan
)

var kindNames = map[AcquisitionKind]string{
	FixedOffsetSingleRead:     "fixed_single",
	FixedOffsetColumnwiseRead: "fixed_columnwise",
	ScriptedBufferScan:        "scan",
}

func (k AcquisitionKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("AcquisitionKind(%d)", int(k))
}

// ParseAcquisitionKind is the inverse of AcquisitionKind.String
func ParseAcquisitionKind(s string) (AcquisitionKind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown acquisition kind %q", s)
}

// MatrixShape is the in-memory layout of a fixed-offset camera
type MatrixShape int

const (
	// 12 scalars, row-major 3x4
	Shape3x4RowMajor MatrixShape = iota + 1
	// 16 scalars, row-major 4x4; the bottom row is ignored
	Shape4x4RowMajor
	// 4 columns of 3 scalars, ColumnStride bytes apart
	Shape4x4ColumnMajor
	// 3 scalars holding the position only
	ShapePositionOnly
)

var shapeNames = map[MatrixShape]string{
	Shape3x4RowMajor:    "3x4",
	Shape4x4RowMajor:    "4x4",
	Shape4x4ColumnMajor: "4x4_columns",
	ShapePositionOnly:   "position",
}

func (s MatrixShape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("MatrixShape(%d)", int(s))
}

func ParseMatrixShape(s string) (MatrixShape, error) {
	for shape, name := range shapeNames {
		if strings.EqualFold(s, name) {
			return shape, nil
		}
	}
	return 0, fmt.Errorf("unknown matrix shape %q", s)
}

// FovAxis says which field of view a scripted buffer carries in payload value 13
type FovAxis int

const (
	FovNone FovAxis = iota
	FovVertical
	FovHorizontal
)

func (f FovAxis) String() string {
	switch f {
	case FovVertical:
		return "vertical"
	case FovHorizontal:
		return "horizontal"
	}
	return "none"
}

func ParseFovAxis(s string) (FovAxis, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return FovNone, nil
	case "vertical", "v":
		return FovVertical, nil
	case "horizontal", "h":
		return FovHorizontal, nil
	}
	return FovNone, fmt.Errorf("unknown fov axis %q", s)
}

// Profile is the immutable configuration for one executable
type Profile struct {
	// Executable is the lowercase basename the profile is selected by
	Executable string
	Name       string
	// Build names the release the offsets were taken from
	Build string
	// Module holding the camera; empty means the main image
	Module string

	Kind         AcquisitionKind
	Offset       uint64
	Shape        MatrixShape
	ColumnStride uint64
	// Scalar is the width of fixed-offset matrix values
	Scalar countbuf.Scalar

	// Buffer is the scripted buffer layout for ScriptedBufferScan
	Buffer countbuf.Layout
	Fov    FovAxis

	// PostRotation is multiplied onto the raw transform when set
	PostRotation *camera.Basis

	Depth DepthCurve
}

// Validate checks that the profile is complete for its kind
func (p Profile) Validate() error {
	if p.Executable == "" {
		return fmt.Errorf("profile %q: empty executable name", p.Name)
	}
	if p.Executable != memory_map.BaseName(p.Executable) {
		return fmt.Errorf("profile %q: executable must be a lowercase basename", p.Executable)
	}

	switch p.Kind {
	case FixedOffsetSingleRead:
		switch p.Shape {
		case Shape3x4RowMajor, Shape4x4RowMajor:
		default:
			return fmt.Errorf("profile %q: shape %s cannot be read in one call", p.Executable, p.Shape)
		}
	case FixedOffsetColumnwiseRead:
		switch p.Shape {
		case Shape4x4ColumnMajor, ShapePositionOnly:
		default:
			return fmt.Errorf("profile %q: shape %s cannot be read by column", p.Executable, p.Shape)
		}
	case ScriptedBufferScan:
		if err := p.Buffer.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.Executable, err)
		}
		if p.Buffer.PayloadCount < 12 {
			return fmt.Errorf("profile %q: scripted buffer needs at least 12 payload values, has %d",
				p.Executable, p.Buffer.PayloadCount)
		}
		if p.Fov != FovNone && p.Buffer.PayloadCount < 13 {
			return fmt.Errorf("profile %q: field of view needs 13 payload values", p.Executable)
		}
	default:
		return fmt.Errorf("profile %q: unknown acquisition kind %d", p.Executable, int(p.Kind))
	}

	if p.Kind != ScriptedBufferScan && p.Scalar != 0 && p.Scalar != countbuf.Float32 && p.Scalar != countbuf.Float64 {
		return fmt.Errorf("profile %q: unsupported scalar width %d", p.Executable, int(p.Scalar))
	}
	if p.Kind == FixedOffsetColumnwiseRead && p.Shape == Shape4x4ColumnMajor {
		if need := 3 * uint64(p.MatrixScalar().Size()); p.ColumnStep() < need {
			return fmt.Errorf("profile %q: column stride %d overlaps %d-byte columns", p.Executable, p.ColumnStep(), need)
		}
	}
	return p.Depth.Validate()
}

// MatrixScalar returns the scalar width of fixed-offset reads
func (p Profile) MatrixScalar() countbuf.Scalar {
	if p.Scalar == 0 {
		return countbuf.Float32
	}
	return p.Scalar
}

// ColumnStep returns the byte distance between columns for column-wise reads.
// The default is a packed 4x4 column of the matrix scalar.
func (p Profile) ColumnStep() uint64 {
	if p.ColumnStride == 0 {
		return 4 * uint64(p.MatrixScalar().Size())
	}
	return p.ColumnStride
}

func (p Profile) String() string {
	name := p.Name
	if p.Build != "" {
		name = p.Build
	}
	module := p.Module
	if module == "" {
		module = "<main image>"
	}
	switch p.Kind {
	case ScriptedBufferScan:
		return fmt.Sprintf("%s (%s): scan %s n=%d stride=%d in %s", p.Executable, name,
			p.Buffer.Scalar, p.Buffer.PayloadCount, max(p.Buffer.Stride, 1), module)
	default:
		return fmt.Sprintf("%s (%s): %s %s at %s+0x%x", p.Executable, name, p.Kind, p.Shape, module, p.Offset)
	}
}
