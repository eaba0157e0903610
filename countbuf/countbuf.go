// Package countbuf implements the self-describing counter buffer that game-side
// scripts write every frame so the camera can be located by a memory scan:
//
//	[trigger][counter][payload_1 .. payload_N][sum][alternating sum]
//
// Both checksums start from the counter. The sum adds every payload value; the
// alternating sum adds payload values at even positions and subtracts those at
// odd positions (positions are 1-based, so the first payload value is subtracted).
package countbuf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Trigger is the 64-bit magic value written at the start of every buffer.
// It should rarely occur in game memory, so it is a cheap scan pre-filter.
const Trigger uint64 = 4429373075689993337

// TriggerBytes returns the little-endian encoding of Trigger
func TriggerBytes() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, Trigger)
	return b
}

// Scalar is the floating point width used for every value in a buffer
type Scalar int

const (
	Float32 Scalar = 4
	Float64 Scalar = 8
)

// Size returns the width in bytes
func (s Scalar) Size() int { return int(s) }

func (s Scalar) String() string {
	switch s {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("Scalar(%d)", int(s))
}

// Layout fixes the shape of a buffer. It must match what the instrumentation writes.
type Layout struct {
	Scalar       Scalar
	PayloadCount int
	// Stride interleaves values: value i sits at i*Stride scalars past the header.
	// Zero means 1.
	Stride int
}

// Validate checks that the layout describes a usable buffer
func (l Layout) Validate() error {
	if l.Scalar != Float32 && l.Scalar != Float64 {
		return fmt.Errorf("countbuf: unsupported scalar width %d", int(l.Scalar))
	}
	if l.PayloadCount <= 0 {
		return fmt.Errorf("countbuf: payload count must be positive, got %d", l.PayloadCount)
	}
	if l.Stride < 0 {
		return fmt.Errorf("countbuf: negative stride %d", l.Stride)
	}
	return nil
}

func (l Layout) stride() int {
	if l.Stride <= 1 {
		return 1
	}
	return l.Stride
}

// HeaderSize is the number of trigger bytes in front of the counter.
// With interleaving the header occupies one full stride.
func (l Layout) HeaderSize() int {
	if l.stride() == 1 {
		return 8
	}
	return l.Scalar.Size() * l.stride()
}

// Size is the total number of bytes a buffer occupies, and therefore the
// minimum match length for a scan.
func (l Layout) Size() int {
	return l.HeaderSize() + (l.PayloadCount+3)*l.Scalar.Size()*l.stride()
}

// ValueOffset returns the byte offset of value i, where 0 is the counter,
// 1..N are payload values, N+1 is the sum and N+2 the alternating sum.
func (l Layout) ValueOffset(i int) int {
	return l.HeaderSize() + i*l.Scalar.Size()*l.stride()
}

// Result is the outcome of verifying a window
type Result struct {
	Valid   bool
	Counter float64
	Payload []float64
}

// Verify interprets window as a buffer of this layout. It never reads past
// len(window); windows shorter than Size are invalid. The trigger bytes are
// not checked here, the scanner does that.
func (l Layout) Verify(window []byte) Result {
	if l.Validate() != nil || len(window) < l.Size() {
		return Result{}
	}
	switch l.Scalar {
	case Float32:
		return verify(l, decode(l, window, func(b []byte) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		}))
	default:
		return verify(l, decode(l, window, func(b []byte) float64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}))
	}
}

// Match adapts Verify to the scanner's predicate signature
func (l Layout) Match(window []byte) bool {
	return l.Verify(window).Valid
}

func decode[T float32 | float64](l Layout, window []byte, read func([]byte) T) []T {
	n := l.PayloadCount + 3
	vals := make([]T, n)
	width := l.Scalar.Size()
	for i := 0; i < n; i++ {
		off := l.ValueOffset(i)
		vals[i] = read(window[off : off+width])
	}
	return vals
}

// verify runs the checksum in the buffer's own precision so float32 buffers
// round the same way the instrumentation did.
func verify[T float32 | float64](l Layout, vals []T) Result {
	counter := vals[0]
	if math.IsNaN(float64(counter)) || math.IsInf(float64(counter), 0) || !(counter > 0.5) {
		return Result{}
	}

	sum, alt := checksums(counter, vals[1:1+l.PayloadCount])
	if !NearlyEqual(sum, vals[1+l.PayloadCount]) || !NearlyEqual(alt, vals[2+l.PayloadCount]) {
		return Result{}
	}

	payload := make([]float64, l.PayloadCount)
	for i, v := range vals[1 : 1+l.PayloadCount] {
		payload[i] = float64(v)
	}
	return Result{Valid: true, Counter: float64(counter), Payload: payload}
}

func checksums[T float32 | float64](counter T, payload []T) (sum, alt T) {
	sum, alt = counter, counter
	for i, v := range payload {
		sum += v
		if (i+1)%2 == 0 {
			alt += v
		} else {
			alt -= v
		}
	}
	return sum, alt
}

// NearlyEqual compares with a tolerance relative to the operands' magnitude:
// |a-b| < max(smallest normal, 128*epsilon*min(|a|+|b|, max)).
func NearlyEqual[T float32 | float64](a, b T) bool {
	if a == b {
		return true
	}
	var eps, smallest, largest float64
	switch any(a).(type) {
	case float32:
		eps, smallest, largest = 0x1p-23, 0x1p-126, math.MaxFloat32
	default:
		eps, smallest, largest = 0x1p-52, 0x1p-1022, math.MaxFloat64
	}
	diff := math.Abs(float64(a) - float64(b))
	norm := math.Min(math.Abs(float64(a))+math.Abs(float64(b)), largest)
	return diff < math.Max(smallest, 128*eps*norm)
}

// Encode builds a valid buffer the way the instrumentation does. Bytes between
// interleaved values are left zero.
func (l Layout) Encode(counter float64, payload []float64) ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if len(payload) != l.PayloadCount {
		return nil, fmt.Errorf("countbuf: want %d payload values, got %d", l.PayloadCount, len(payload))
	}

	buf := make([]byte, l.Size())
	copy(buf, TriggerBytes())

	switch l.Scalar {
	case Float32:
		vals := make([]float32, len(payload))
		for i, v := range payload {
			vals[i] = float32(v)
		}
		sum, alt := checksums(float32(counter), vals)
		all := append(append([]float32{float32(counter)}, vals...), sum, alt)
		for i, v := range all {
			binary.LittleEndian.PutUint32(buf[l.ValueOffset(i):], math.Float32bits(v))
		}
	default:
		sum, alt := checksums(counter, payload)
		all := append(append([]float64{counter}, payload...), sum, alt)
		for i, v := range all {
			binary.LittleEndian.PutUint64(buf[l.ValueOffset(i):], math.Float64bits(v))
		}
	}
	return buf, nil
}

// Sections describes the byte ranges of a buffer, in order, for diagnostics.
func (l Layout) Sections() []Section {
	width := l.Scalar.Size()
	return []Section{
		{Name: "trigger", Offset: 0, Length: l.HeaderSize()},
		{Name: "counter", Offset: l.ValueOffset(0), Length: width},
		{Name: "payload", Offset: l.ValueOffset(1), Length: l.ValueOffset(l.PayloadCount+1) - l.ValueOffset(1)},
		{Name: "sum", Offset: l.ValueOffset(l.PayloadCount + 1), Length: width},
		{Name: "altsum", Offset: l.ValueOffset(l.PayloadCount + 2), Length: width},
	}
}

// Section is a named byte range inside a buffer
type Section struct {
	Name   string
	Offset int
	Length int
}
