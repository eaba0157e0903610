package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"gamecam/hexdump"
	"gamecam/process"
	"gamecam/process_blob"
	"gamecam/table"
)

func parseAddress(s string) (process.ProcessMemoryAddress, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return process.ProcessMemoryAddress(v), nil
}

func listRegions(w io.Writer, space *process_blob.Space) error {
	mm, err := space.GetMemoryMap()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Process: %s\n", space.Name)
	fmt.Fprintf(w, "PID: %d\n", space.PID)
	fmt.Fprintf(w, "Memory Regions: %d\n\n", len(mm))

	tbl := table.New(
		table.ColumnSpec{Header: "START"},
		table.ColumnSpec{Header: "END"},
		table.ColumnSpec{Header: "PERMS"},
		table.ColumnSpec{Header: "SIZE", AlignRight: true},
		table.ColumnSpec{Header: "PATH"},
	)
	for _, region := range mm {
		tbl.AddRow(
			fmt.Sprintf("%016x", region.Address),
			fmt.Sprintf("%016x", region.Address+uint64(region.Size)),
			region.Perms,
			strconv.FormatUint(uint64(region.Size), 10),
			region.Path,
		)
	}
	return tbl.Render(w)
}

func dumpAt(w io.Writer, space *process_blob.Space, addr string, size int, colorize bool) error {
	a, err := parseAddress(addr)
	if err != nil {
		return err
	}
	if size <= 0 {
		return fmt.Errorf("size must be positive, got %d", size)
	}

	data, err := space.ReadMemory(a, process.ProcessMemorySize(size))
	if err != nil {
		return fmt.Errorf("reading %d bytes at %s: %w", size, a.ToString(), err)
	}
	mm, err := space.GetMemoryMap()
	if err != nil {
		return err
	}

	options := hexdump.DefaultOptions()
	options.Address = uint64(a)
	options.Colorize = colorize
	options.MemoryMap = mm

	fmt.Fprintf(w, "Hexdump at %s (%d bytes):\n", a.ToString(), size)
	hexdump.DumpToWriter(w, data, options)
	return nil
}
