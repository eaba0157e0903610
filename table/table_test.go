package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tbl := New(
		ColumnSpec{Header: "EXE"},
		ColumnSpec{Header: "KIND", MinWidth: 6},
		ColumnSpec{Header: "OFFSET", AlignRight: true},
	)
	tbl.AddRow("crysis.exe", "fixed_single", "0x2008f0")
	tbl.AddRow("re2.exe", "scan")
	assert.Equal(t, 2, tbl.Len())

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))

	want := strings.Join([]string{
		"EXE        KIND           OFFSET",
		"---------- ------------ --------",
		"crysis.exe fixed_single 0x2008f0",
		"re2.exe    scan                -",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestFormatFuncKeepsAlignment(t *testing.T) {
	tbl := New(
		ColumnSpec{Header: "STATE", FormatFunc: func(s string) string { return "\033[32m" + s + "\033[0m" }},
		ColumnSpec{Header: "N"},
	)
	tbl.AddRow("ok", "1")
	tbl.AddRow("failed", "2")

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, VisibleLength(lines[2]), VisibleLength(lines[3]))
	assert.Contains(t, lines[2], "\033[32mok\033[0m     1")
}

func TestVisibleLength(t *testing.T) {
	assert.Equal(t, 5, VisibleLength("hello"))
	assert.Equal(t, 5, VisibleLength("\033[38;2;255;140;0mhello\033[0m"))
	assert.Equal(t, 0, VisibleLength(""))
}
