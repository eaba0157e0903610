package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"gamecam/countbuf"
	"gamecam/process"
	"gamecam/process_blob"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "camscan-test"))
}

func TestParseAOB(t *testing.T) {
	pattern, err := parseAOB("de,ad ?? ef")
	require.NoError(t, err)
	assert.Equal(t, []AOBPart{{0xde, 0xff}, {0xad, 0xff}, {0, 0}, {0xef, 0xff}}, pattern)
	assert.Equal(t, "de ad ?? ef", formatPattern(pattern))

	pattern, err = parseAOB("u64:4429373075689993337")
	require.NoError(t, err)
	value, mask := splitPattern(pattern)
	assert.Equal(t, countbuf.TriggerBytes(), value)
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 8), mask)

	pattern, err = parseAOB("f32:1.0,u32:0x10")
	require.NoError(t, err)
	value, _ = splitPattern(pattern)
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f, 0x10, 0, 0, 0}, value)

	for _, bad := range []string{"", "zz", "100", "i8:1", "u32:-1", "f64:x"} {
		_, err := parseAOB(bad)
		assert.Error(t, err, bad)
	}
}

func buffers(t *testing.T, layout countbuf.Layout) *process_blob.Space {
	t.Helper()
	s := process_blob.NewSpace()
	data := make([]byte, 0x4000)
	for i, counter := range []float64{3, 9} {
		p := make([]float64, layout.PayloadCount)
		for j := range p {
			p[j] = float64(j) + counter
		}
		buf, err := layout.Encode(counter, p)
		require.NoError(t, err)
		copy(data[0x1000*(i+1):], buf)
	}
	require.NoError(t, s.Map(0x200000, data, "rw-p", ""))
	return s
}

func TestScanTargetLayout(t *testing.T) {
	layout := countbuf.Layout{Scalar: countbuf.Float64, PayloadCount: 13, Stride: 1}
	s := buffers(t, layout)

	hits, err := scanTarget(context.Background(), s, scanConfig{layout: layout, max: 0}, testLogger())
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, process.ProcessMemoryAddress(0x201000), hits[0].match.Address)
	assert.Equal(t, process.ProcessMemoryAddress(0x202000), hits[1].match.Address)
	assert.True(t, hits[0].result.Valid)
	assert.Equal(t, 9.0, hits[1].result.Counter)

	hits, err = scanTarget(context.Background(), s, scanConfig{layout: layout, max: 1}, testLogger())
	require.NoError(t, err)
	require.Len(t, hits, 1)

	var out bytes.Buffer
	require.NoError(t, report(&out, hits, scanConfig{layout: layout}, false))
	text := out.String()
	assert.Contains(t, text, "Match 1 at 0x201000:")
	assert.Contains(t, text, "<- trigger, counter")
	assert.Contains(t, text, "counter 3")
	assert.Contains(t, text, "fov 15")
}

func TestScanTargetPattern(t *testing.T) {
	layout := countbuf.Layout{Scalar: countbuf.Float32, PayloadCount: 12, Stride: 1}
	s := buffers(t, layout)

	pattern, err := parseAOB("u64:4429373075689993337")
	require.NoError(t, err)
	hits, err := scanTarget(context.Background(), s, scanConfig{pattern: pattern}, testLogger())
	require.NoError(t, err)
	require.Len(t, hits, 2)

	var out bytes.Buffer
	require.NoError(t, report(&out, hits, scanConfig{pattern: pattern}, false))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "# ADDRESS  COUNTER", lines[len(lines)-4])
	assert.Contains(t, lines[len(lines)-1], "0x202000")
	assert.NotContains(t, out.String(), "<- trigger")
}

func TestScanTargetInvalidLayout(t *testing.T) {
	_, err := scanTarget(context.Background(), process_blob.NewSpace(), scanConfig{layout: countbuf.Layout{Scalar: countbuf.Float64}}, testLogger())
	assert.Error(t, err)
}

func TestChooseLayout(t *testing.T) {
	l, err := chooseLayout("", "", "float", 12, 1)
	require.NoError(t, err)
	assert.Equal(t, countbuf.Layout{Scalar: countbuf.Float32, PayloadCount: 12, Stride: 1}, l)

	l, err = chooseLayout("re2.exe", "", "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Stride)

	_, err = chooseLayout("crysis.exe", "", "", 0, 0)
	assert.Error(t, err)
	_, err = chooseLayout("", "", "half", 12, 1)
	assert.Error(t, err)
}

func TestScanTargetPatternUnaligned(t *testing.T) {
	s := process_blob.NewSpace()
	data := make([]byte, 0x100)
	copy(data[0x43:], []byte{0xde, 0xad, 0xbe, 0xef, 0x01})
	require.NoError(t, s.Map(0x300000, data, "r--p", ""))

	pattern, err := parseAOB("de ad ?? ef")
	require.NoError(t, err)
	hits, err := scanTarget(context.Background(), s, scanConfig{pattern: pattern}, testLogger())
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, process.ProcessMemoryAddress(0x300043), hits[0].match.Address)
}
