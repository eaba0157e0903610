package process

import (
	"fmt"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// UserSpaceCeiling is the highest usable user-mode virtual address on x86-64.
// Region walks stop once the cursor reaches it.
const UserSpaceCeiling = ProcessMemoryAddress(0x7FFFFFFFFFFF)

// AlignUp rounds addr up to the next multiple of align. An align of 0 or 1 returns addr.
func AlignUp(addr ProcessMemoryAddress, align uint64) ProcessMemoryAddress {
	if align <= 1 {
		return addr
	}
	rem := uint64(addr) % align
	if rem == 0 {
		return addr
	}
	return addr + ProcessMemoryAddress(align-rem)
}
