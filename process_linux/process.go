//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gamecam/process"
	"gamecam/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// mapMaxAge bounds how stale the cached /proc/<pid>/maps may get before a
// region query re-reads it
const mapMaxAge = 2 * time.Second

// LinuxProcess implements the process.Process interface for Linux systems,
// including Windows games running under Wine or Proton
type LinuxProcess struct {
	pid     process.ProcessID
	exe     string
	log     *logger.Logger
	mm      []memory_map.MemoryMapItem
	mmStamp time.Time
	mu      sync.Mutex
}

// New creates a new LinuxProcess instance
func New() process.Process {
	return &LinuxProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (process.Process, error) {
	p := &LinuxProcess{}
	err := p.Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	if !procExists(int(pid)) {
		return fmt.Errorf("process with PID %d does not exist", pid)
	}

	exe, err := executablePath(int(pid))
	if err != nil {
		return fmt.Errorf("failed to resolve executable of %d: %w", pid, err)
	}

	p.mu.Lock()
	p.pid = pid
	p.exe = exe
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	if err := p.UpdateMemoryMap(); err != nil {
		return fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.log.Infoln("Process opened:", exe)

	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid != 0 {
		p.log.Infoln("Closing process")
	}

	p.pid = 0
	p.exe = ""
	p.mm = nil
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *LinuxProcess) ExecutablePath() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pid == 0 {
		return "", process.ErrProcessNotOpen
	}
	return p.exe, nil
}

func (p *LinuxProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateMemoryMapLocked()
}

func (p *LinuxProcess) updateMemoryMapLocked() error {
	if p.pid == 0 {
		return process.ErrProcessNotOpen
	}

	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(p.pid))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	// QueryRegion and IsValidAddress2 require the memory map to be sorted by address
	memory_map.Sort(mm)

	p.mm = mm
	p.mmStamp = time.Now()
	return nil
}

func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)
	return result, nil
}

// QueryRegion answers from the cached memory map, re-reading it once it is
// older than mapMaxAge
func (p *LinuxProcess) QueryRegion(addr process.ProcessMemoryAddress) (memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return memory_map.MemoryMapItem{}, process.ErrProcessNotOpen
	}
	if time.Since(p.mmStamp) > mapMaxAge {
		if err := p.updateMemoryMapLocked(); err != nil {
			return memory_map.MemoryMapItem{}, err
		}
	}

	return memory_map.QueryRegion(uint64(addr), p.mm, uint64(process.UserSpaceCeiling)), nil
}

// ModuleBase returns the lowest address mapped from a file named name.
// Modules load late, so a miss re-reads the memory map before giving up.
func (p *LinuxProcess) ModuleBase(name string) (process.ProcessMemoryAddress, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return 0, process.ErrProcessNotOpen
	}
	if name == "" {
		name = p.exe
	}

	if base, ok := memory_map.ModuleBase(name, p.mm); ok {
		return process.ProcessMemoryAddress(base), nil
	}
	if err := p.updateMemoryMapLocked(); err != nil {
		return 0, err
	}
	if base, ok := memory_map.ModuleBase(name, p.mm); ok {
		return process.ProcessMemoryAddress(base), nil
	}
	return 0, fmt.Errorf("%q: %w", memory_map.BaseName(name), process.ErrModuleNotFound)
}

// executablePath prefers the Windows image named on the command line, since
// /proc/<pid>/exe points at the Wine loader for Proton games
func executablePath(pid int) (string, error) {
	if argv0 := commandLineImage(pid); strings.HasSuffix(strings.ToLower(argv0), ".exe") {
		return argv0, nil
	}
	return os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
}

func commandLineImage(pid int) string {
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err != nil {
		return ""
	}
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
