package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AOBPart represents a part of the AOB pattern
type AOBPart struct {
	Value byte
	Mask  byte // 0xFF for exact match, 0x00 for wildcard
}

// parseAOB parses "00,ba,??,f0" style patterns. A part may also be a typed
// little-endian value such as u32:1234, u64:4429373075689993337 or f64:0.5.
func parseAOB(aob string) ([]AOBPart, error) {
	parts := strings.FieldsFunc(aob, func(r rune) bool {
		return r == ',' || r == ' '
	})

	var pattern []AOBPart

	for _, part := range parts {
		if part == "??" || part == "?" {
			pattern = append(pattern, AOBPart{Value: 0, Mask: 0})
			continue
		}

		if kind, val, ok := strings.Cut(part, ":"); ok {
			b, err := expandTyped(kind, val)
			if err != nil {
				return nil, err
			}
			for _, v := range b {
				pattern = append(pattern, AOBPart{Value: v, Mask: 0xFF})
			}
			continue
		}

		val, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte: %s", part)
		}
		pattern = append(pattern, AOBPart{Value: byte(val), Mask: 0xFF})
	}

	if len(pattern) == 0 {
		return nil, fmt.Errorf("empty pattern")
	}
	return pattern, nil
}

func expandTyped(kind, val string) ([]byte, error) {
	switch strings.ToLower(kind) {
	case "u32", "uint32":
		v, err := strconv.ParseUint(val, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", kind, val, err)
		}
		return binary.LittleEndian.AppendUint32(nil, uint32(v)), nil
	case "u64", "uint64":
		v, err := strconv.ParseUint(val, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", kind, val, err)
		}
		return binary.LittleEndian.AppendUint64(nil, v), nil
	case "f32", "float":
		v, err := strconv.ParseFloat(val, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", kind, val, err)
		}
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(v))), nil
	case "f64", "double":
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", kind, val, err)
		}
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)), nil
	}
	return nil, fmt.Errorf("unknown type %q in pattern", kind)
}

func splitPattern(pattern []AOBPart) (value, mask []byte) {
	value = make([]byte, len(pattern))
	mask = make([]byte, len(pattern))
	for i, p := range pattern {
		value[i] = p.Value
		mask[i] = p.Mask
	}
	return value, mask
}

func formatPattern(pattern []AOBPart) string {
	var sb strings.Builder
	for i, p := range pattern {
		if i > 0 {
			sb.WriteString(" ")
		}
		if p.Mask == 0 {
			sb.WriteString("??")
		} else {
			sb.WriteString(hex.EncodeToString([]byte{p.Value}))
		}
	}
	return sb.String()
}
