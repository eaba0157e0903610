package countbuf

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload(n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = float64(i)*0.25 - 1.5
	}
	return p
}

func TestLayoutSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		layout Layout
		header int
		size   int
	}{
		{"double n13", Layout{Scalar: Float64, PayloadCount: 13, Stride: 1}, 8, 8 + 16*8},
		{"float n13", Layout{Scalar: Float32, PayloadCount: 13}, 8, 8 + 16*4},
		{"double n13 stride2", Layout{Scalar: Float64, PayloadCount: 13, Stride: 2}, 16, 16 + 16*16},
		{"float n1 stride4", Layout{Scalar: Float32, PayloadCount: 1, Stride: 4}, 16, 16 + 4*16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.header, tt.layout.HeaderSize())
			assert.Equal(t, tt.size, tt.layout.Size())
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Layout{Scalar: Float64, PayloadCount: 1}.Validate())
	assert.Error(t, Layout{Scalar: 2, PayloadCount: 1}.Validate())
	assert.Error(t, Layout{Scalar: Float32}.Validate())
	assert.Error(t, Layout{Scalar: Float32, PayloadCount: 1, Stride: -1}.Validate())
}

func TestTriggerBytes(t *testing.T) {
	assert.Equal(t, Trigger, binary.LittleEndian.Uint64(TriggerBytes()))
}

func TestVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	layouts := []Layout{
		{Scalar: Float64, PayloadCount: 13, Stride: 1},
		{Scalar: Float64, PayloadCount: 13, Stride: 2},
		{Scalar: Float32, PayloadCount: 13, Stride: 1},
		{Scalar: Float32, PayloadCount: 4, Stride: 3},
	}
	for _, l := range layouts {
		t.Run(l.Scalar.String(), func(t *testing.T) {
			payload := samplePayload(l.PayloadCount)
			buf, err := l.Encode(7, payload)
			require.NoError(t, err)
			require.Len(t, buf, l.Size())

			res := l.Verify(buf)
			require.True(t, res.Valid)
			assert.Equal(t, 7.0, res.Counter)
			// sample values are exactly representable in float32
			assert.Empty(t, cmp.Diff(payload, res.Payload))
			assert.True(t, l.Match(buf))
		})
	}
}

func TestVerifyExactBits(t *testing.T) {
	l := Layout{Scalar: Float64, PayloadCount: 3}
	payload := []float64{math.Pi, -math.E, 1e-300}
	buf, err := l.Encode(123456789, payload)
	require.NoError(t, err)

	res := l.Verify(buf)
	require.True(t, res.Valid)
	for i := range payload {
		assert.Equal(t, math.Float64bits(payload[i]), math.Float64bits(res.Payload[i]))
	}
}

func TestVerifyShortWindow(t *testing.T) {
	l := Layout{Scalar: Float64, PayloadCount: 13}
	buf, err := l.Encode(2, samplePayload(13))
	require.NoError(t, err)

	assert.False(t, l.Verify(buf[:len(buf)-1]).Valid)
	assert.False(t, l.Verify(nil).Valid)

	// trailing bytes beyond the buffer are ignored
	assert.True(t, l.Verify(append(buf, 0xff, 0xff)).Valid)
}

func TestVerifySinglePayloadMutation(t *testing.T) {
	l := Layout{Scalar: Float64, PayloadCount: 13}
	buf, err := l.Encode(10, samplePayload(13))
	require.NoError(t, err)

	for i := 1; i <= l.PayloadCount; i++ {
		mutated := append([]byte(nil), buf...)
		off := l.ValueOffset(i)
		v := math.Float64frombits(binary.LittleEndian.Uint64(mutated[off:]))
		binary.LittleEndian.PutUint64(mutated[off:], math.Float64bits(v+0.5))
		assert.False(t, l.Verify(mutated).Valid, "payload %d", i)
	}
}

func TestVerifyCounterThreshold(t *testing.T) {
	l := Layout{Scalar: Float64, PayloadCount: 2}
	payload := []float64{1, 2}

	buf, err := l.Encode(0.5, payload)
	require.NoError(t, err)
	assert.False(t, l.Verify(buf).Valid)

	buf, err = l.Encode(0.50001, payload)
	require.NoError(t, err)
	assert.True(t, l.Verify(buf).Valid)

	buf, err = l.Encode(math.Inf(1), payload)
	require.NoError(t, err)
	assert.False(t, l.Verify(buf).Valid)

	buf, err = l.Encode(math.NaN(), payload)
	require.NoError(t, err)
	assert.False(t, l.Verify(buf).Valid)
}

func TestVerifyAlternatingSign(t *testing.T) {
	// counter 1, payload [2, 3]: sum 6, alternating 1 - 2 + 3 = 2
	l := Layout{Scalar: Float64, PayloadCount: 2}
	buf := make([]byte, l.Size())
	copy(buf, TriggerBytes())
	for i, v := range []float64{1, 2, 3, 6, 2} {
		binary.LittleEndian.PutUint64(buf[l.ValueOffset(i):], math.Float64bits(v))
	}
	assert.True(t, l.Verify(buf).Valid)

	binary.LittleEndian.PutUint64(buf[l.ValueOffset(4):], math.Float64bits(0))
	assert.False(t, l.Verify(buf).Valid)
}

func TestNearlyEqual(t *testing.T) {
	assert.True(t, NearlyEqual(1.0, 1.0+1e-15))
	assert.False(t, NearlyEqual(1.0, 1.0+1e-12))
	assert.True(t, NearlyEqual(float32(1), float32(1)+1e-6))
	assert.False(t, NearlyEqual(float32(1), float32(1.001)))
	assert.True(t, NearlyEqual(0.0, 0.0))
	assert.True(t, NearlyEqual(0.0, 1e-310))
}

func TestEncodeRejectsWrongPayload(t *testing.T) {
	_, err := Layout{Scalar: Float64, PayloadCount: 3}.Encode(1, []float64{1})
	assert.Error(t, err)
}

func TestSections(t *testing.T) {
	l := Layout{Scalar: Float64, PayloadCount: 13}
	sections := l.Sections()
	require.Len(t, sections, 5)
	total := 0
	for _, s := range sections {
		total += s.Length
	}
	assert.Equal(t, l.Size(), total)
	assert.Equal(t, "altsum", sections[4].Name)
	assert.Equal(t, l.Size()-8, sections[4].Offset)
}
