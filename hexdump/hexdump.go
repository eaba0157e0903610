package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode"

	"gamecam/countbuf"
	"gamecam/process/memory_map"
	"gamecam/process_blob"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// HexDumpOptions controls the layout of a dump
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// GroupSize defines the grouping of bytes (usually 1, 4 or 8)
	GroupSize int

	ShowASCII bool

	// Address is printed in the offset column for the first byte
	Address     uint64
	OffsetWidth int

	// Colorize turns ANSI escapes on; plain output is stable for files and tests
	Colorize bool

	OffsetColor       coloransi.ColorCode
	HexColor          coloransi.ColorCode
	ASCIIColor        coloransi.ColorCode
	NonPrintableColor coloransi.ColorCode
	ZeroColor         coloransi.ColorCode

	// Sections are byte ranges relative to the start of the data. Each one
	// is drawn in its own color and its name is printed on the line it starts.
	Sections []countbuf.Section

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// MemoryMap, when set, annotates aligned qwords that point into a mapping
	MemoryMap []memory_map.MemoryMapItem
}

// sectionColors cycles across sections
var sectionColors = []coloransi.ColorCode{
	coloransi.Yellow,
	coloransi.Cyan,
	coloransi.Green,
	coloransi.Magenta,
	coloransi.BrightBlue,
	coloransi.BrightRed,
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine:      16,
		GroupSize:         1,
		ShowASCII:         true,
		OffsetWidth:       12,
		OffsetColor:       coloransi.Cyan,
		HexColor:          coloransi.White,
		ASCIIColor:        coloransi.White,
		NonPrintableColor: coloransi.BrightBlack,
		ZeroColor:         coloransi.BrightBlack,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options HexDumpOptions) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.GroupSize <= 0 {
		options.GroupSize = 1
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], offset, options)
		lineCount++
	}
}

// DumpBlob dumps a window read from a process, addressed by its remote address
func DumpBlob(blob *process_blob.ProcessBlob, sections []countbuf.Section, colorize bool) string {
	options := DefaultOptions()
	options.Address = uint64(blob.Address())
	options.Sections = sections
	options.Colorize = colorize
	return Dump(blob.Data(), options)
}

func (o HexDumpOptions) paint(color coloransi.ColorCode, s string) string {
	if !o.Colorize {
		return s
	}
	return coloransi.Foreground(color, s)
}

// sectionAt returns the index of the section covering pos, or -1
func (o HexDumpOptions) sectionAt(pos int) int {
	for i, s := range o.Sections {
		if pos >= s.Offset && pos < s.Offset+s.Length {
			return i
		}
	}
	return -1
}

// hexWidth is the printed width of the hex column for n bytes
func (o HexDumpOptions) hexWidth(n int) int {
	if n == 0 {
		return 0
	}
	groups := (n + o.GroupSize - 1) / o.GroupSize
	w := n*2 + groups - 1
	if o.split(n) {
		w += 2 // " | " replaces one group separator
	}
	return w
}

// split reports whether a line of n bytes gets the mid-line divider
func (o HexDumpOptions) split(n int) bool {
	left := o.splitGroup()
	groups := (n + o.GroupSize - 1) / o.GroupSize
	return o.BytesPerLine >= 8 && left > 0 && groups > left
}

func (o HexDumpOptions) splitGroup() int {
	return (o.BytesPerLine / o.GroupSize) / 2
}

func formatLine(writer io.Writer, data []byte, lineOffset int, options HexDumpOptions) {
	addr := fmt.Sprintf("%0*x", options.OffsetWidth, options.Address+uint64(lineOffset))
	fmt.Fprint(writer, options.paint(options.OffsetColor, addr), "  ")

	hexParts := formatHexValues(data, lineOffset, options)
	if options.split(len(data)) {
		left := options.splitGroup()
		fmt.Fprint(writer, strings.Join(hexParts[:left], " "), " | ", strings.Join(hexParts[left:], " "))
	} else {
		fmt.Fprint(writer, strings.Join(hexParts, " "))
	}

	// keep the ASCII column aligned on short lines
	if pad := options.hexWidth(options.BytesPerLine) - options.hexWidth(len(data)); pad > 0 {
		fmt.Fprint(writer, strings.Repeat(" ", pad))
	}

	if options.ShowASCII {
		fmt.Fprint(writer, " | ")
		formatASCII(writer, data, lineOffset, options)
	}

	var notes []string
	for _, s := range options.Sections {
		if s.Offset >= lineOffset && s.Offset < lineOffset+len(data) {
			notes = append(notes, s.Name)
		}
	}
	if len(notes) > 0 {
		fmt.Fprint(writer, "  <- ", strings.Join(notes, ", "))
	}

	if options.MemoryMap != nil {
		for i := 0; i+8 <= len(data); i += 8 {
			ptr := binary.LittleEndian.Uint64(data[i : i+8])
			if isValidPointer(ptr, options.MemoryMap) {
				fmt.Fprint(writer, "  -> ", options.paint(coloransi.Yellow, fmt.Sprintf("0x%x", ptr)))
			}
		}
	}

	fmt.Fprintln(writer)
}

func (o HexDumpOptions) byteColor(pos int, b byte, normal coloransi.ColorCode) coloransi.ColorCode {
	if idx := o.sectionAt(pos); idx >= 0 {
		return sectionColors[idx%len(sectionColors)]
	}
	if b == 0 {
		return o.ZeroColor
	}
	return normal
}

func formatASCII(writer io.Writer, data []byte, lineOffset int, options HexDumpOptions) {
	for i, b := range data {
		c := rune(b)
		s := "."
		color := options.byteColor(lineOffset+i, b, options.ASCIIColor)
		if b != 0 && b < 0x80 && unicode.IsPrint(c) {
			s = string(c)
		} else if options.sectionAt(lineOffset+i) < 0 && b != 0 {
			color = options.NonPrintableColor
		}
		fmt.Fprint(writer, options.paint(color, s))
	}
}

func formatHexValues(data []byte, lineOffset int, options HexDumpOptions) []string {
	var result []string
	var group strings.Builder

	for i, b := range data {
		color := options.byteColor(lineOffset+i, b, options.HexColor)
		group.WriteString(options.paint(color, fmt.Sprintf("%02x", b)))

		if (i+1)%options.GroupSize == 0 || i == len(data)-1 {
			result = append(result, group.String())
			group.Reset()
		}
	}
	return result
}

func isValidPointer(ptr uint64, memoryMap []memory_map.MemoryMapItem) bool {
	if ptr == 0 {
		return false
	}
	return memory_map.IsValidAddress2(ptr, memoryMap) != nil
}
