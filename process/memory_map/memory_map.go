package memory_map

import (
	"fmt"
	"sort"
	"strings"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address   uint64 `json:"address"`        // The starting address of the memory region
	Size      uint   `json:"size"`           // The size of the memory region in bytes
	Perms     string `json:"perms"`          // Permissions (e.g., "r-xp" for read, execute, private)
	Committed bool   `json:"committed"`      // Backed by real memory (false for reserved/free gaps)
	Path      string `json:"path,omitempty"` // Backing file or module path, if any
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Committed: %t", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Committed)
}

// End returns the first address past the region
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

// Contains reports whether addr lies inside the region
func (mmItem MemoryMapItem) Contains(addr uint64) bool {
	return addr >= mmItem.Address && addr < mmItem.End()
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return len(mmItem.Perms) > 1 && mmItem.Perms[1] == 'w'
}

// IsScannable reports whether the region is committed and readable
func (mmItem MemoryMapItem) IsScannable() bool {
	return mmItem.Committed && mmItem.IsReadable()
}

// ModuleName returns the lowercase basename of the backing path
func (mmItem MemoryMapItem) ModuleName() string {
	return BaseName(mmItem.Path)
}

// BaseName returns the lowercase basename of a POSIX or Windows path.
func BaseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		p = p[i+1:]
	}
	return strings.ToLower(p)
}

// Sort orders the memory map by address; QueryRegion and IsValidAddress2 require it.
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// IsValidAddress2 returns the region containing addr in a sorted memory map, or nil
func IsValidAddress2(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].Address+uint64(memoryMap[i].Size) > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

// QueryRegion answers a region query against a sorted memory map.
// Addresses inside a mapping get that mapping. Addresses in a gap get a
// synthetic non-committed item spanning up to the next mapping, or up to
// ceiling when nothing is mapped above addr.
func QueryRegion(addr uint64, memoryMap []MemoryMapItem, ceiling uint64) MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return memoryMap[i]
	}

	end := ceiling
	if i < len(memoryMap) {
		end = memoryMap[i].Address
	}
	if end <= addr {
		return MemoryMapItem{Address: addr, Perms: "---p"}
	}
	return MemoryMapItem{Address: addr, Size: uint(end - addr), Perms: "---p"}
}

// ModuleBase returns the lowest mapped address backed by a file whose
// basename matches name (case-insensitive).
func ModuleBase(name string, memoryMap []MemoryMapItem) (uint64, bool) {
	want := BaseName(name)
	found := false
	var base uint64
	for _, item := range memoryMap {
		if item.Path == "" || item.ModuleName() != want {
			continue
		}
		if !found || item.Address < base {
			base = item.Address
			found = true
		}
	}
	return base, found
}
