package process

import (
	"gamecam/process/memory_map"
)

// RemoteMemory is the read-only access capability the scanner and the
// acquisition strategy need from a target process.
type RemoteMemory interface {
	// QueryRegion describes the region containing addr. When addr falls in an
	// unmapped gap the result is a non-committed item covering the gap.
	QueryRegion(addr ProcessMemoryAddress) (memory_map.MemoryMapItem, error)

	// ReadMemory reads exactly size bytes at addr or fails.
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
}

// ModuleResolver resolves the load address of a module inside a process
type ModuleResolver interface {
	// ModuleBase returns the base address of the named module.
	// An empty name resolves the main executable image.
	ModuleBase(name string) (ProcessMemoryAddress, error)
}

// Process is the interface that defines operations for interacting with a system process
type Process interface {
	// Open opens a process with the given PID for memory operations
	Open(pid ProcessID) error

	// Close closes the process and releases resources
	Close() error

	// GetPID returns the process ID
	GetPID() ProcessID

	// UpdateMemoryMap refreshes the memory map for the process
	UpdateMemoryMap() error

	// GetMemoryMap returns a copy of the current memory map
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)

	// ExecutablePath returns the path of the main executable image
	ExecutablePath() (string, error)

	RemoteMemory
	ModuleResolver
}
