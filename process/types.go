package process

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessInfo contains basic information about a target process
type ProcessInfo struct {
	PID  ProcessID // Process ID
	Name string    // Process name (comm on Linux, image basename on Windows)
	Exe  string    // Path to the executable
}
