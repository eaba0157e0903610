package process_blob

import (
	"fmt"
	"sync"
	"sync/atomic"

	"gamecam/process"
	"gamecam/process/memory_map"
)

// Space is an in-memory address space that implements process.Process.
// It backs offline replay of saved snapshots and synthetic test targets,
// and counts region queries and reads so callers can observe scan cost.
type Space struct {
	PID     process.ProcessID
	Name    string
	Exe     string
	Ceiling process.ProcessMemoryAddress

	mu    sync.RWMutex
	mm    []memory_map.MemoryMapItem
	blobs map[uint64][]byte // region address -> data

	queries atomic.Int64
	reads   atomic.Int64
}

var _ process.Process = (*Space)(nil)

// NewSpace creates an empty address space
func NewSpace() *Space {
	return &Space{
		Ceiling: process.UserSpaceCeiling,
		blobs:   make(map[uint64][]byte),
	}
}

// Map adds a committed region at base backed by data. Regions must not overlap.
func (s *Space) Map(base process.ProcessMemoryAddress, data []byte, perms string, path string) error {
	if len(data) == 0 {
		return fmt.Errorf("map %s: empty region", base.ToString())
	}
	item := memory_map.MemoryMapItem{
		Address:   uint64(base),
		Size:      uint(len(data)),
		Perms:     perms,
		Committed: true,
		Path:      path,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.mm {
		if item.Address < other.End() && other.Address < item.End() {
			return fmt.Errorf("map %s: overlaps region at 0x%x", base.ToString(), other.Address)
		}
	}
	s.mm = append(s.mm, item)
	memory_map.Sort(s.mm)
	s.blobs[item.Address] = data
	return nil
}

// Reserve adds a region that is listed but not committed (never readable).
func (s *Space) Reserve(base process.ProcessMemoryAddress, size process.ProcessMemorySize) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mm = append(s.mm, memory_map.MemoryMapItem{Address: uint64(base), Size: uint(size), Perms: "---p"})
	memory_map.Sort(s.mm)
}

// WriteMemory copies data into an already mapped region. It is the test-side
// stand-in for the external instrumentation writing into the target.
func (s *Space) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := memory_map.IsValidAddress2(uint64(addr), s.mm)
	if item == nil || !item.Committed {
		return process.ErrAddressNotMapped
	}
	blob := s.blobs[item.Address]
	offset := uint64(addr) - item.Address
	if offset+uint64(len(data)) > uint64(len(blob)) {
		return fmt.Errorf("write %d bytes at %s crosses region end", len(data), addr.ToString())
	}
	copy(blob[offset:], data)
	return nil
}

// QueryCount returns the number of QueryRegion calls served
func (s *Space) QueryCount() int64 { return s.queries.Load() }

// ReadCount returns the number of ReadMemory calls served
func (s *Space) ReadCount() int64 { return s.reads.Load() }

// ResetCounters zeroes the call counters
func (s *Space) ResetCounters() {
	s.queries.Store(0)
	s.reads.Store(0)
}

func (s *Space) Open(pid process.ProcessID) error {
	return fmt.Errorf("Open not supported for Space, use LoadSnapshot or Map")
}

func (s *Space) Close() error {
	return nil
}

func (s *Space) GetPID() process.ProcessID {
	return s.PID
}

func (s *Space) UpdateMemoryMap() error {
	return nil // Memory map is static
}

func (s *Space) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]memory_map.MemoryMapItem, len(s.mm))
	copy(result, s.mm)
	return result, nil
}

func (s *Space) ExecutablePath() (string, error) {
	if s.Exe == "" {
		return "", fmt.Errorf("executable path unknown")
	}
	return s.Exe, nil
}

func (s *Space) ModuleBase(name string) (process.ProcessMemoryAddress, error) {
	if name == "" {
		name = s.Exe
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	base, ok := memory_map.ModuleBase(name, s.mm)
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, process.ErrModuleNotFound)
	}
	return process.ProcessMemoryAddress(base), nil
}

func (s *Space) QueryRegion(addr process.ProcessMemoryAddress) (memory_map.MemoryMapItem, error) {
	s.queries.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memory_map.QueryRegion(uint64(addr), s.mm, uint64(s.Ceiling)), nil
}

func (s *Space) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	s.reads.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	region := memory_map.IsValidAddress2(uint64(addr), s.mm)
	if region == nil || !region.Committed {
		return nil, process.ErrAddressNotMapped
	}

	data, ok := s.blobs[region.Address]
	if !ok {
		return nil, fmt.Errorf("no data for region 0x%x", region.Address)
	}

	offset := uint64(addr) - region.Address
	if offset+uint64(size) > uint64(len(data)) {
		return nil, fmt.Errorf("read %d bytes at %s crosses region end: %w", size, addr.ToString(), process.ErrShortRead)
	}

	result := make([]byte, size)
	copy(result, data[offset:offset+uint64(size)])
	return result, nil
}
