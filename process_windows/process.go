//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"gamecam/process"
	"gamecam/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

const accessRights = windows.PROCESS_VM_READ | windows.PROCESS_QUERY_INFORMATION

// WindowsProcess implements the process.Process interface for Windows systems
type WindowsProcess struct {
	pid    process.ProcessID
	handle windows.Handle
	exe    string
	log    *logger.Logger
	mm     []memory_map.MemoryMapItem
	mu     sync.Mutex
}

// New creates a new WindowsProcess instance
func New() process.Process {
	return &WindowsProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new WindowsProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (process.Process, error) {
	p := &WindowsProcess{}
	err := p.Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *WindowsProcess) Open(pid process.ProcessID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	handle, err := windows.OpenProcess(accessRights, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("OpenProcess failed: %w", err)
	}

	exe, err := imageName(handle)
	if err != nil {
		windows.CloseHandle(handle)
		return fmt.Errorf("QueryFullProcessImageName failed: %w", err)
	}

	p.pid = pid
	p.handle = handle
	p.exe = exe
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))

	if err := p.updateMemoryMapInternal(); err != nil {
		p.log.Warn("Failed to initialize memory map: ", err)
	}

	p.log.Infoln("Process opened:", exe)
	return nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		if err := windows.CloseHandle(p.handle); err != nil {
			return fmt.Errorf("CloseHandle failed: %w", err)
		}
		p.handle = 0
	}

	p.pid = 0
	p.exe = ""
	p.mm = nil
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *WindowsProcess) ExecutablePath() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return "", process.ErrProcessNotOpen
	}
	return p.exe, nil
}

func (p *WindowsProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateMemoryMapInternal()
}

// updateMemoryMapInternal walks the address space with VirtualQueryEx and
// names image regions after the module that owns them
func (p *WindowsProcess) updateMemoryMapInternal() error {
	if p.handle == 0 {
		return process.ErrProcessNotOpen
	}

	modules, err := listModules(p.pid)
	if err != nil {
		p.log.Debugln("Module list unavailable:", err)
	}

	var mm []memory_map.MemoryMapItem
	for addr := uint64(0); addr < uint64(process.UserSpaceCeiling); {
		item, err := queryRegion(p.handle, addr)
		if err != nil || item.Size == 0 {
			break
		}
		if item.Committed {
			for _, m := range modules {
				if item.Address >= m.base && item.Address < m.base+m.size {
					item.Path = m.path
					break
				}
			}
			mm = append(mm, item)
		}
		addr = item.End()
	}

	p.mm = mm
	return nil
}

func (p *WindowsProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return nil, process.ErrProcessNotOpen
	}
	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)
	return result, nil
}

// QueryRegion asks the kernel directly; free and reserved ranges come back
// as non-committed items
func (p *WindowsProcess) QueryRegion(addr process.ProcessMemoryAddress) (memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return memory_map.MemoryMapItem{}, process.ErrProcessNotOpen
	}
	return queryRegion(handle, uint64(addr))
}

func queryRegion(handle windows.Handle, addr uint64) (memory_map.MemoryMapItem, error) {
	var mbi windows.MemoryBasicInformation
	if err := windows.VirtualQueryEx(handle, uintptr(addr), &mbi, unsafe.Sizeof(mbi)); err != nil {
		return memory_map.MemoryMapItem{}, fmt.Errorf("VirtualQueryEx at 0x%x: %w", addr, err)
	}
	return memory_map.FromProtect(uint64(mbi.BaseAddress), uint64(mbi.RegionSize), mbi.State, mbi.Protect), nil
}

// ModuleBase resolves name through a Toolhelp module snapshot
func (p *WindowsProcess) ModuleBase(name string) (process.ProcessMemoryAddress, error) {
	p.mu.Lock()
	pid, exe := p.pid, p.exe
	p.mu.Unlock()

	if pid == 0 {
		return 0, process.ErrProcessNotOpen
	}
	if name == "" {
		name = exe
	}

	modules, err := listModules(pid)
	if err != nil {
		return 0, err
	}
	want := memory_map.BaseName(name)
	for _, m := range modules {
		if memory_map.BaseName(m.path) == want {
			return process.ProcessMemoryAddress(m.base), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", want, process.ErrModuleNotFound)
}

func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return nil, process.ErrProcessNotOpen
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead)
	switch {
	case errors.Is(err, windows.ERROR_PARTIAL_COPY) && bytesRead == 0:
		return nil, fmt.Errorf("read %s at %s: %w", size.ToString(), addr.ToString(), process.ErrAddressNotMapped)
	case errors.Is(err, windows.ERROR_PARTIAL_COPY):
		return nil, fmt.Errorf("read %d of %s at %s: %w", bytesRead, size.ToString(), addr.ToString(), process.ErrShortRead)
	case err != nil:
		return nil, fmt.Errorf("ReadProcessMemory failed: %w", err)
	case bytesRead != uintptr(size):
		return nil, fmt.Errorf("read %d of %s at %s: %w", bytesRead, size.ToString(), addr.ToString(), process.ErrShortRead)
	}

	return buf, nil
}

func imageName(handle windows.Handle) (string, error) {
	buf := make([]uint16, 1024)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:size]), nil
}
