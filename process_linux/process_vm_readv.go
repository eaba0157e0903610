//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"unsafe"

	"gamecam/process"

	"golang.org/x/sys/unix"
)

// process_vm_readv uses the process_vm_readv syscall to read memory from another process
func process_vm_readv(pid process.ProcessID, localBuf []byte, remoteAddr process.ProcessMemoryAddress) (int, error) {
	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(len(localBuf)),
	}

	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

// ReadMemory reads exactly size bytes at addr. Partial reads fail with
// process.ErrShortRead and unmapped addresses with process.ErrAddressNotMapped.
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}
	if size == 0 {
		return []byte{}, nil
	}

	data := make([]byte, size)
	n, err := process_vm_readv(pid, data, addr)
	if errors.Is(err, unix.EFAULT) {
		return nil, fmt.Errorf("read %s at %s: %w", size.ToString(), addr.ToString(), process.ErrAddressNotMapped)
	}
	if err != nil {
		return nil, fmt.Errorf("process_vm_readv: failed to read process memory: %w", err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("read %d of %s at %s: %w", n, size.ToString(), addr.ToString(), process.ErrShortRead)
	}

	return data, nil
}
