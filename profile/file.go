package profile

import (
	"fmt"

	"gamecam/camera"
	"gamecam/countbuf"
	"gamecam/process/memory_map"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
)

// FileProfile is the YAML form of a Profile:
//
//	profiles:
//	  - executable: mygame.exe
//	    kind: fixed_single
//	    module: engine.dll
//	    offset: 0x2008F0
//	    shape: 3x4
//	    depth: {kind: perspective, normalizer: 16777215, a: 0.25, b: 5000}
type FileProfile struct {
	Executable   string    `koanf:"executable" yaml:"executable"`
	Name         string    `koanf:"name" yaml:"name,omitempty"`
	Build        string    `koanf:"build" yaml:"build,omitempty"`
	Module       string    `koanf:"module" yaml:"module,omitempty"`
	Kind         string    `koanf:"kind" yaml:"kind"`
	Offset       uint64    `koanf:"offset" yaml:"offset,omitempty"`
	Shape        string    `koanf:"shape" yaml:"shape,omitempty"`
	ColumnStride uint64    `koanf:"column_stride" yaml:"column_stride,omitempty"`
	Scalar       string    `koanf:"scalar" yaml:"scalar,omitempty"`
	PayloadCount int       `koanf:"payload_count" yaml:"payload_count,omitempty"`
	Stride       int       `koanf:"stride" yaml:"stride,omitempty"`
	Fov          string    `koanf:"fov" yaml:"fov,omitempty"`
	PostRotation []float64 `koanf:"post_rotation" yaml:"post_rotation,omitempty"`
	Depth        FileDepth `koanf:"depth" yaml:"depth,omitempty"`
}

type FileDepth struct {
	Kind       string  `koanf:"kind" yaml:"kind,omitempty"`
	Normalizer float64 `koanf:"normalizer" yaml:"normalizer,omitempty"`
	A          float64 `koanf:"a" yaml:"a,omitempty"`
	B          float64 `koanf:"b" yaml:"b,omitempty"`
	C          float64 `koanf:"c" yaml:"c,omitempty"`
	D          float64 `koanf:"d" yaml:"d,omitempty"`
}

func parseScalar(s string) (countbuf.Scalar, error) {
	switch s {
	case "":
		return 0, nil
	case "float32", "float":
		return countbuf.Float32, nil
	case "float64", "double":
		return countbuf.Float64, nil
	}
	return 0, fmt.Errorf("unknown scalar %q", s)
}

// Profile converts the file form and validates it
func (f FileProfile) Profile() (Profile, error) {
	kind, err := ParseAcquisitionKind(f.Kind)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %q: %w", f.Executable, err)
	}
	scalar, err := parseScalar(f.Scalar)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %q: %w", f.Executable, err)
	}
	fov, err := ParseFovAxis(f.Fov)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %q: %w", f.Executable, err)
	}
	depthKind, err := ParseDepthKind(f.Depth.Kind)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %q: %w", f.Executable, err)
	}

	p := Profile{
		Executable:   memory_map.BaseName(f.Executable),
		Name:         f.Name,
		Build:        f.Build,
		Module:       f.Module,
		Kind:         kind,
		Offset:       f.Offset,
		ColumnStride: f.ColumnStride,
		Fov:          fov,
		Depth: DepthCurve{
			Kind:       depthKind,
			Normalizer: f.Depth.Normalizer,
			A:          f.Depth.A,
			B:          f.Depth.B,
			C:          f.Depth.C,
			D:          f.Depth.D,
		},
	}

	if kind == ScriptedBufferScan {
		p.Buffer = countbuf.Layout{Scalar: scalar, PayloadCount: f.PayloadCount, Stride: f.Stride}
	} else {
		p.Scalar = scalar
		if p.Shape, err = ParseMatrixShape(f.Shape); err != nil {
			return Profile{}, fmt.Errorf("profile %q: %w", f.Executable, err)
		}
	}

	if len(f.PostRotation) > 0 {
		var b camera.Basis
		if len(f.PostRotation) != len(b) {
			return Profile{}, fmt.Errorf("profile %q: post_rotation needs 16 values, got %d", f.Executable, len(f.PostRotation))
		}
		copy(b[:], f.PostRotation)
		p.PostRotation = &b
	}

	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// ToFile is the inverse of FileProfile.Profile
func ToFile(p Profile) FileProfile {
	f := FileProfile{
		Executable:   p.Executable,
		Name:         p.Name,
		Build:        p.Build,
		Module:       p.Module,
		Kind:         p.Kind.String(),
		Offset:       p.Offset,
		ColumnStride: p.ColumnStride,
		Depth: FileDepth{
			Normalizer: p.Depth.Normalizer,
			A:          p.Depth.A,
			B:          p.Depth.B,
			C:          p.Depth.C,
			D:          p.Depth.D,
		},
	}
	if p.Fov != FovNone {
		f.Fov = p.Fov.String()
	}
	if p.Depth.Kind != DepthNone {
		f.Depth.Kind = p.Depth.Kind.String()
	}
	if p.Kind == ScriptedBufferScan {
		f.Scalar = p.Buffer.Scalar.String()
		f.PayloadCount = p.Buffer.PayloadCount
		f.Stride = p.Buffer.Stride
	} else {
		f.Shape = p.Shape.String()
		if p.Scalar != 0 {
			f.Scalar = p.Scalar.String()
		}
	}
	if p.PostRotation != nil {
		f.PostRotation = append([]float64(nil), p.PostRotation[:]...)
	}
	return f
}

// LoadFile reads profiles from the "profiles" list of a YAML file
func LoadFile(path string) ([]Profile, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error loading profiles: %w", err)
	}

	var entries []FileProfile
	if err := k.Unmarshal("profiles", &entries); err != nil {
		return nil, fmt.Errorf("error decoding profiles: %w", err)
	}

	profiles := make([]Profile, 0, len(entries))
	for i, e := range entries {
		p, err := e.Profile()
		if err != nil {
			return nil, fmt.Errorf("%s entry %d: %w", path, i, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
