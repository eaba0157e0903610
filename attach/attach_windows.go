//go:build windows

package attach

import (
	"gamecam/process"
	"gamecam/process_windows"
)

// OpenPID opens a live process by pid
func OpenPID(pid process.ProcessID) (process.Process, error) {
	return process_windows.NewWithPID(pid)
}

// Find returns the lowest pid running name, or os.ErrNotExist
func Find(name string) (process.ProcessInfo, error) {
	return process_windows.OneByName(name)
}

// Exists reports whether pid is still running
func Exists(pid process.ProcessID) bool {
	return process_windows.Exists(pid)
}
