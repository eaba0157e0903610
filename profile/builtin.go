package profile

import (
	"gamecam/camera"
	"gamecam/countbuf"
)

// dishonoredBasis maps the engine's camera axes onto x right, y forward, z up
var dishonoredBasis = camera.Basis{
	0, 0, 1, 0,
	-1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0, 1,
}

var controlDepth = DepthCurve{Kind: DepthReciprocalLinear, Normalizer: Depth30Bit, A: 0.00310475, B: 1.00787427}

var crysisDepth = DepthCurve{Kind: DepthPerspective, Normalizer: Depth24Bit, A: 0.25, B: 5000}

var residentEvilDepth = DepthCurve{
	Kind: DepthLogarithmicFit, Normalizer: 4294967295.0,
	A: 1.28064135, B: 0.00045998854, C: 355.142568, D: 83.194776,
}

// Builtin returns the compiled-in profile table. Each call returns fresh
// values, so callers may modify the result.
func Builtin() []Profile {
	rot := dishonoredBasis
	return []Profile{
		{
			Executable: "control_dx11.exe",
			Name:       "Control",
			Build:      "Control_DX11",
			Module:     "renderer_rmdwin7_f.dll",
			Kind:       FixedOffsetColumnwiseRead,
			Offset:     0x1266D30,
			Shape:      Shape4x4ColumnMajor,
			Depth:      controlDepth,
		},
		{
			Executable: "control_dx12.exe",
			Name:       "Control",
			Build:      "Control_DX12",
			Module:     "renderer_rmdwin10_f.dll",
			Kind:       FixedOffsetColumnwiseRead,
			Offset:     0x1291110,
			Shape:      Shape4x4ColumnMajor,
			Depth:      controlDepth,
		},
		{
			Executable: "crysis.exe",
			Name:       "Crysis",
			Build:      "Crysis2008_GOG_DX10_x64",
			Module:     "Cry3DEngine.dll",
			Kind:       FixedOffsetSingleRead,
			Offset:     0x2008F0,
			Shape:      Shape3x4RowMajor,
			Depth:      crysisDepth,
		},
		{
			Executable: "crysis64.exe",
			Name:       "Crysis",
			Build:      "Crysis2008_GOG_DX10_x64",
			Module:     "Cry3DEngine.dll",
			Kind:       FixedOffsetSingleRead,
			Offset:     0x2008F0,
			Shape:      Shape3x4RowMajor,
			Depth:      crysisDepth,
		},
		{
			Executable: "cyberpunk2077.exe",
			Name:       "Cyberpunk2077",
			Build:      "Cyberpunk2077_patch161",
			Kind:       ScriptedBufferScan,
			Buffer:     countbuf.Layout{Scalar: countbuf.Float64, PayloadCount: 13, Stride: 1},
			Fov:        FovVertical,
			Depth:      DepthCurve{Kind: DepthLogarithmicFit, Normalizer: Depth32Bit, A: 1.28410601, B: 0.000080821547, C: 355.3397906, D: 83.92854443},
		},
		{
			Executable:   "dishonored_do.exe",
			Name:         "DishonoredDOTO",
			Build:        "DishonoredDOTO_Epic_v1p145",
			Kind:         FixedOffsetColumnwiseRead,
			Offset:       0x522ED50,
			Shape:        Shape4x4ColumnMajor,
			PostRotation: &rot,
			Depth:        DepthCurve{Kind: DepthReciprocalAffine, Normalizer: Depth24Bit, A: 5415.69378002, B: 541167.20430436},
		},
		{
			Executable: "horizonzerodawn.exe",
			Name:       "HorizonZeroDawn",
			Build:      "HorizonZeroDawn_GOG",
			Kind:       FixedOffsetSingleRead,
			Offset:     0x300D200,
			Shape:      Shape3x4RowMajor,
			Depth:      DepthCurve{Kind: DepthReciprocalLinear, Normalizer: Depth30Bit, A: 0.00313259, B: 1.00787352},
		},
		{
			Executable: "re2.exe",
			Name:       "ResidentEvil",
			Build:      "ResidentEvil",
			Kind:       ScriptedBufferScan,
			Buffer:     countbuf.Layout{Scalar: countbuf.Float64, PayloadCount: 13, Stride: 2},
			Fov:        FovHorizontal,
			Depth:      residentEvilDepth,
		},
		{
			Executable: "re3.exe",
			Name:       "ResidentEvil",
			Build:      "ResidentEvil",
			Kind:       ScriptedBufferScan,
			Buffer:     countbuf.Layout{Scalar: countbuf.Float64, PayloadCount: 13, Stride: 2},
			Fov:        FovHorizontal,
			Depth:      residentEvilDepth,
		},
		{
			Executable: "witcher3.exe",
			Name:       "Witcher3",
			Build:      "Witcher3_patch20221222",
			Kind:       ScriptedBufferScan,
			Buffer:     countbuf.Layout{Scalar: countbuf.Float32, PayloadCount: 13, Stride: 1},
			Fov:        FovVertical,
			Depth:      DepthCurve{Kind: DepthLogarithmicFit, Normalizer: Depth32Bit, A: 1.60130532, B: 0.00041544, C: 355.02435228, D: 84.55415024},
		},
	}
}
