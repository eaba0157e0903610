package hexdump

import (
	"encoding/binary"
	"strings"
	"testing"

	"gamecam/countbuf"
	"gamecam/process/memory_map"
	"gamecam/process_blob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestDumpPlainLayout(t *testing.T) {
	options := DefaultOptions()
	options.Address = 0x1000

	out := lines(Dump(sequence(20), options))
	require.Len(t, out, 2)
	assert.Equal(t, "000000001000  00 01 02 03 04 05 06 07 | 08 09 0a 0b 0c 0d 0e 0f | ................", out[0])
	assert.Equal(t, "000000001010  10 11 12 13"+strings.Repeat(" ", 38)+" | ....", out[1])
	assert.NotContains(t, out[0], "\x1b[")
}

func TestDumpGroupsAndText(t *testing.T) {
	options := DefaultOptions()
	options.GroupSize = 4
	options.OffsetWidth = 4

	out := lines(Dump([]byte("camera matrix ok"), options))
	require.Len(t, out, 1)
	assert.Equal(t, "0000  63616d65 7261206d | 61747269 78206f6b | camera matrix ok", out[0])
}

func TestDumpSections(t *testing.T) {
	layout := countbuf.Layout{Scalar: countbuf.Float64, PayloadCount: 12, Stride: 1}
	buf, err := layout.Encode(7, make([]float64, 12))
	require.NoError(t, err)

	options := DefaultOptions()
	options.Sections = layout.Sections()
	out := lines(Dump(buf, options))
	require.Len(t, out, 8)

	assert.True(t, strings.HasSuffix(out[0], "  <- trigger, counter"), out[0])
	assert.True(t, strings.HasSuffix(out[1], "  <- payload"), out[1])
	assert.True(t, strings.HasSuffix(out[7], "  <- sum, altsum"), out[7])
	for _, line := range out[2:7] {
		assert.NotContains(t, line, "<-")
	}
}

func TestDumpColorize(t *testing.T) {
	options := DefaultOptions()
	options.Sections = []countbuf.Section{{Name: "trigger", Offset: 0, Length: 8}}

	plain := Dump(sequence(16), options)
	options.Colorize = true
	colored := Dump(sequence(16), options)

	assert.Contains(t, colored, "\x1b[")
	assert.NotEqual(t, plain, colored)
}

func TestDumpMaxLines(t *testing.T) {
	options := DefaultOptions()
	options.MaxLines = 1

	out := lines(Dump(sequence(40), options))
	require.Len(t, out, 2)
	assert.Equal(t, "... 24 more bytes", out[1])
}

func TestDumpPointers(t *testing.T) {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint64(data, 0x401000)
	binary.LittleEndian.PutUint64(data[8:], 0x900000)

	options := DefaultOptions()
	options.MemoryMap = []memory_map.MemoryMapItem{{Address: 0x400000, Size: 0x2000}}

	out := lines(Dump(data, options))
	require.Len(t, out, 1)
	assert.True(t, strings.HasSuffix(out[0], "  -> 0x401000"), out[0])
	assert.NotContains(t, out[0], "0x900000")
}

func TestDumpBlob(t *testing.T) {
	blob := process_blob.NewProcessBlob(0x500000, sequence(8))
	out := lines(DumpBlob(blob, nil, false))
	require.Len(t, out, 1)
	assert.True(t, strings.HasPrefix(out[0], "000000500000  00 01 02 03 04 05 06 07"), out[0])
}
