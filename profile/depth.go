package profile

import (
	"fmt"
	"math"
	"strings"
)

// DepthKind selects the formula turning a normalized depth-buffer value into
// a physical distance.
type DepthKind int

const (
	DepthNone DepthKind = iota
	// A / (1 - d*B)
	DepthReciprocalLinear
	// A / (B + exp(C*d - D)), a curve fit to a logarithmic depth buffer
	DepthLogarithmicFit
	// near=A, far=B: near / max(1e-7, 1 - d*(1 - near/far))
	DepthPerspective
	// A / (1 + B*d)
	DepthReciprocalAffine
)

var depthNames = map[DepthKind]string{
	DepthNone:             "none",
	DepthReciprocalLinear: "reciprocal_linear",
	DepthLogarithmicFit:   "log_fit",
	DepthPerspective:      "perspective",
	DepthReciprocalAffine: "reciprocal_affine",
}

func (k DepthKind) String() string {
	if s, ok := depthNames[k]; ok {
		return s
	}
	return fmt.Sprintf("DepthKind(%d)", int(k))
}

func ParseDepthKind(s string) (DepthKind, error) {
	if s == "" {
		return DepthNone, nil
	}
	for k, name := range depthNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return DepthNone, fmt.Errorf("unknown depth kind %q", s)
}

// Common depth buffer normalizers
const (
	Depth24Bit = 16777215.0
	Depth30Bit = 1073741824.0
	Depth32Bit = 4294967296.0
)

// DepthCurve converts raw integer depth values to distances
type DepthCurve struct {
	Kind DepthKind
	// Normalizer divides the raw value before the formula is applied
	Normalizer float64
	A, B, C, D float64
}

// CanDecode reports whether the curve describes a formula
func (c DepthCurve) CanDecode() bool {
	return c.Kind != DepthNone
}

func (c DepthCurve) Validate() error {
	if c.Kind == DepthNone {
		return nil
	}
	if _, ok := depthNames[c.Kind]; !ok {
		return fmt.Errorf("unknown depth kind %d", int(c.Kind))
	}
	if !(c.Normalizer > 0) {
		return fmt.Errorf("depth %s: normalizer must be positive", c.Kind)
	}
	if c.Kind == DepthPerspective && (!(c.A > 0) || !(c.B > c.A)) {
		return fmt.Errorf("depth perspective: need 0 < near < far, got near=%g far=%g", c.A, c.B)
	}
	return nil
}

// Decode converts a raw depth-buffer value. ok is false when the curve has no formula.
func (c DepthCurve) Decode(raw uint64) (distance float32, ok bool) {
	d := float64(raw) / c.Normalizer
	switch c.Kind {
	case DepthReciprocalLinear:
		return float32(c.A / (1 - d*c.B)), true
	case DepthLogarithmicFit:
		return float32(c.A / (c.B + ExpFast(c.C*d-c.D))), true
	case DepthPerspective:
		return float32(c.A / math.Max(0.0000001, 1-d*(1-c.A/c.B))), true
	case DepthReciprocalAffine:
		return float32(c.A / (1 + c.B*d)), true
	}
	return 0, false
}

// ExpFast is Schraudolph's approximation of e^a. The log_fit coefficients
// were fitted against this approximation, not math.Exp.
func ExpFast(a float64) float64 {
	x := int64(6497320848556798*a + 0x3fef127e83d16f12)
	return math.Float64frombits(uint64(x))
}
