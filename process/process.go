// Package process provides the remote memory access types shared by the
// live backends (process_linux, process_windows) and the in-memory one (process_blob).
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrModuleNotFound is returned when a module (or the main image) is not loaded in the process yet.
	ErrModuleNotFound = errors.New("module not found")

	// ErrShortRead is returned when fewer bytes than requested could be read.
	ErrShortRead = errors.New("short read")
)
