package process_blob

import (
	"encoding/binary"
	"fmt"
	"math"

	"gamecam/process"
)

// ProcessBlob is a bounds-checked view of bytes copied out of a process.
// It remembers the remote address the bytes came from so offsets can be
// reported as absolute addresses.
type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
}

func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
	}
}

// Address returns the remote address of the first byte
func (p *ProcessBlob) Address() process.ProcessMemoryAddress {
	return p.baseaddress
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

func (p *ProcessBlob) Len() int {
	return len(p.data)
}

func (p *ProcessBlob) check(offset process.ProcessMemoryAddress, size int) error {
	if size < 0 || uint64(offset)+uint64(size) > uint64(len(p.data)) {
		return fmt.Errorf("offset %s size %d outside blob of %d bytes at %s",
			offset.ToString(), size, len(p.data), p.baseaddress.ToString())
	}
	return nil
}

// OffsetBlob returns a sub-view of size bytes starting at offset.
func (p *ProcessBlob) OffsetBlob(offset process.ProcessMemoryAddress, size process.ProcessMemorySize) (*ProcessBlob, error) {
	if err := p.check(offset, int(size)); err != nil {
		return nil, err
	}
	end := uint64(offset) + uint64(size)
	return NewProcessBlob(p.baseaddress+offset, p.data[offset:end:end]), nil
}

// OffsetUINT32 reads a little-endian unsigned 32-bit integer at offset
func (p *ProcessBlob) OffsetUINT32(offset process.ProcessMemoryAddress) (uint32, error) {
	if err := p.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p.data[offset:]), nil
}

// OffsetUINT64 reads a little-endian unsigned 64-bit integer at offset
func (p *ProcessBlob) OffsetUINT64(offset process.ProcessMemoryAddress) (uint64, error) {
	if err := p.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p.data[offset:]), nil
}

// OffsetFLOAT32 reads a 32-bit floating point number at offset
func (p *ProcessBlob) OffsetFLOAT32(offset process.ProcessMemoryAddress) (float32, error) {
	bits, err := p.OffsetUINT32(offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// OffsetFLOAT64 reads a 64-bit floating point number at offset
func (p *ProcessBlob) OffsetFLOAT64(offset process.ProcessMemoryAddress) (float64, error) {
	bits, err := p.OffsetUINT64(offset)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// Clone returns a blob backed by its own copy of the bytes.
func (p *ProcessBlob) Clone() *ProcessBlob {
	data := make([]byte, len(p.data))
	copy(data, p.data)
	return NewProcessBlob(p.baseaddress, data)
}
