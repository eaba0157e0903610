package main

import (
	"fmt"
	"io"
	"strconv"

	"gamecam/profile"
	"gamecam/table"

	"github.com/Moonlight-Companies/gologger/coloransi"
	yml "gopkg.in/yaml.v2"
)

var kindColors = map[string]coloransi.ColorCode{
	profile.FixedOffsetSingleRead.String():     coloransi.Green,
	profile.FixedOffsetColumnwiseRead.String(): coloransi.Cyan,
	profile.ScriptedBufferScan.String():        coloransi.Yellow,
}

func loadRegistry(path string) (*profile.Registry, error) {
	if path == "" {
		return profile.NewBuiltinRegistry()
	}
	extra, err := profile.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return profile.NewBuiltinRegistry(extra...)
}

// location describes where the camera is read from
func location(p profile.Profile) string {
	if p.Kind == profile.ScriptedBufferScan {
		return fmt.Sprintf("%s x%d stride %d", p.Buffer.Scalar, p.Buffer.PayloadCount, max(p.Buffer.Stride, 1))
	}
	module := p.Module
	if module == "" {
		module = p.Executable
	}
	return fmt.Sprintf("%s+0x%x %s", module, p.Offset, p.Shape)
}

func listProfiles(w io.Writer, profiles []profile.Profile, colorize bool) error {
	kind := table.ColumnSpec{Header: "KIND"}
	if colorize {
		kind.FormatFunc = func(value string) string {
			if color, ok := kindColors[value]; ok {
				return coloransi.Foreground(color, value)
			}
			return value
		}
	}

	tbl := table.New(
		table.ColumnSpec{Header: "EXE"},
		table.ColumnSpec{Header: "NAME"},
		kind,
		table.ColumnSpec{Header: "LOCATION"},
		table.ColumnSpec{Header: "FOV"},
		table.ColumnSpec{Header: "DEPTH"},
	)
	for _, p := range profiles {
		fov, depth := "", ""
		if p.Fov != profile.FovNone {
			fov = p.Fov.String()
		}
		if p.Depth.Kind != profile.DepthNone {
			depth = p.Depth.Kind.String()
		}
		tbl.AddRow(p.Executable, p.Name, p.Kind.String(), location(p), fov, depth)
	}
	return tbl.Render(w)
}

func decodeDepth(w io.Writer, p profile.Profile, raws []string) error {
	if !p.Depth.CanDecode() {
		return fmt.Errorf("profile %s has no depth curve", p.Executable)
	}
	if len(raws) == 0 {
		return fmt.Errorf("no raw depth values given")
	}

	tbl := table.New(
		table.ColumnSpec{Header: "RAW", AlignRight: true},
		table.ColumnSpec{Header: "NORMALIZED", AlignRight: true},
		table.ColumnSpec{Header: "DISTANCE", AlignRight: true},
	)
	for _, s := range raws {
		raw, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid raw depth %q: %w", s, err)
		}
		d, _ := p.Depth.Decode(raw)
		tbl.AddRow(
			strconv.FormatUint(raw, 10),
			strconv.FormatFloat(float64(raw)/p.Depth.Normalizer, 'f', 6, 64),
			strconv.FormatFloat(float64(d), 'f', 4, 32),
		)
	}
	return tbl.Render(w)
}

type profileFile struct {
	Profiles []profile.FileProfile `yaml:"profiles"`
}

// exportProfiles writes profiles in the format profile.LoadFile reads
func exportProfiles(w io.Writer, profiles []profile.Profile) error {
	var out profileFile
	for _, p := range profiles {
		out.Profiles = append(out.Profiles, profile.ToFile(p))
	}
	enc := yml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(out)
}
