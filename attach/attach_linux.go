//go:build linux

package attach

import (
	"gamecam/process"
	"gamecam/process_linux"
)

// OpenPID opens a live process by pid
func OpenPID(pid process.ProcessID) (process.Process, error) {
	return process_linux.NewWithPID(pid)
}

// Find returns the lowest pid running name, or os.ErrNotExist
func Find(name string) (process.ProcessInfo, error) {
	return process_linux.OneByName(name)
}

// Exists reports whether pid is still running
func Exists(pid process.ProcessID) bool {
	return process_linux.Exists(pid)
}
