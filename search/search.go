package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"gamecam/process"
	"gamecam/process/memory_map"
	"gamecam/process_blob"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// DefaultChunkSize is the largest single read issued while scanning a region
const DefaultChunkSize = 1000000

// ErrExhausted is returned when the address space was walked without a match
var ErrExhausted = errors.New("search: address space exhausted without a match")

func defaultLogger() *logger.Logger {
	return logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "scan"))
}

// Searcher holds configuration for a scan
type Searcher struct {
	ChunkSize int
	Trigger   []byte
	Stride    int
	Start     process.ProcessMemoryAddress
	Ceiling   process.ProcessMemoryAddress
	Log       *logger.Logger
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

// WithChunkSize bounds the size of a single read
func WithChunkSize(size int) Option {
	return func(s *Searcher) {
		s.ChunkSize = size
	}
}

// WithTrigger sets a byte pattern that must prefix a window before the
// predicate is consulted.
func WithTrigger(trigger []byte) Option {
	return func(s *Searcher) {
		s.Trigger = append([]byte(nil), trigger...)
	}
}

// WithSlowMode tests every byte offset instead of 4-byte aligned ones
func WithSlowMode() Option {
	return func(s *Searcher) {
		s.Stride = 1
	}
}

func WithStart(addr process.ProcessMemoryAddress) Option {
	return func(s *Searcher) {
		s.Start = addr
	}
}

func WithCeiling(addr process.ProcessMemoryAddress) Option {
	return func(s *Searcher) {
		s.Ceiling = addr
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Searcher) {
		s.Log = log
	}
}

// MatchBytes returns a predicate accepting windows that start with pattern
func MatchBytes(pattern []byte) func([]byte) bool {
	pattern = append([]byte(nil), pattern...)
	return func(data []byte) bool {
		return bytes.HasPrefix(data, pattern)
	}
}

// MatchMasked returns a predicate comparing only the bytes whose mask is
// 0xFF; a zero mask byte is a wildcard. mask must be as long as pattern.
func MatchMasked(pattern, mask []byte) func([]byte) bool {
	pattern = append([]byte(nil), pattern...)
	mask = append([]byte(nil), mask...)
	return func(data []byte) bool {
		if len(data) < len(pattern) {
			return false
		}
		for i, b := range pattern {
			if data[i]&mask[i] != b&mask[i] {
				return false
			}
		}
		return true
	}
}

// MatchValue returns a predicate accepting windows that start with the
// in-memory representation of val. This assumes POD and little endian.
func MatchValue[T any](val T) func([]byte) bool {
	valBytes := unsafe.Slice((*byte)(unsafe.Pointer(&val)), int(unsafe.Sizeof(val)))
	return MatchBytes(valBytes)
}

// Match is an accepted window
type Match struct {
	Address process.ProcessMemoryAddress
	Window  *process_blob.ProcessBlob
}

// Session is one scan over a remote address space. It owns its working
// buffer and may be resumed with Next to enumerate further matches.
type Session struct {
	mem       process.RemoteMemory
	minLen    int
	predicate func([]byte) bool
	cfg       Searcher
	walker    *Walker

	region  memory_map.MemoryMapItem
	readPos uint64 // next address to read inside region
	buf     []byte // working buffer, len <= ChunkSize+minLen
	bufAddr uint64 // remote address of buf[0]
	offset  int    // next candidate offset inside buf

	regions int
	reads   int
	started time.Time
	done    bool
}

// NewSession prepares a scan for windows of minLen bytes accepted by predicate
func NewSession(mem process.RemoteMemory, minLen int, predicate func([]byte) bool, options ...Option) (*Session, error) {
	cfg := Searcher{
		ChunkSize: DefaultChunkSize,
		Stride:    4,
		Ceiling:   process.UserSpaceCeiling,
	}
	for _, opt := range options {
		opt(&cfg)
	}

	if predicate == nil {
		return nil, fmt.Errorf("no search predicate specified")
	}
	if minLen <= 0 {
		return nil, fmt.Errorf("minimum match length must be positive, got %d", minLen)
	}
	if len(cfg.Trigger) > minLen {
		return nil, fmt.Errorf("trigger of %d bytes is longer than the %d byte window", len(cfg.Trigger), minLen)
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.Stride <= 0 {
		cfg.Stride = 4
	}
	if cfg.Log == nil {
		cfg.Log = defaultLogger()
	}

	return &Session{
		mem:       mem,
		minLen:    minLen,
		predicate: predicate,
		cfg:       cfg,
		walker:    NewWalker(mem, cfg.Start, cfg.Ceiling, cfg.Log),
		buf:       make([]byte, 0, cfg.ChunkSize+minLen),
	}, nil
}

// Scan returns the first window accepted by predicate
func Scan(ctx context.Context, mem process.RemoteMemory, minLen int, predicate func([]byte) bool, options ...Option) (Match, error) {
	s, err := NewSession(mem, minLen, predicate, options...)
	if err != nil {
		return Match{}, err
	}
	return s.Next(ctx)
}

// Next continues the scan and returns the next accepted window. After a
// match the scan resumes one stride past the matched address.
func (s *Session) Next(ctx context.Context) (Match, error) {
	if s.started.IsZero() {
		s.started = time.Now()
	}

	for !s.done {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}

		if m, ok := s.matchBuffer(); ok {
			s.cfg.Log.Infoln("Match at", m.Address.ToString(), "after", s.regions, "regions,", s.reads, "reads in", time.Since(s.started))
			return m, nil
		}

		if s.readPos < s.region.End() {
			s.loadChunk()
			continue
		}

		region, ok := s.walker.Next()
		if !ok {
			s.done = true
			break
		}
		s.regions++
		s.region = region
		s.readPos = region.Address
		s.buf = s.buf[:0]
		s.bufAddr = region.Address
		s.offset = 0
	}

	s.cfg.Log.Debugln("Scan exhausted after", s.regions, "regions,", s.reads, "reads in", time.Since(s.started))
	return Match{}, ErrExhausted
}

// Regions returns the number of regions entered so far
func (s *Session) Regions() int {
	return s.regions
}

// loadChunk reads the next piece of the current region into the working
// buffer, carrying over the untested tail of the previous piece.
func (s *Session) loadChunk() {
	remaining := s.region.End() - s.readPos
	size := uint64(s.cfg.ChunkSize)
	if remaining <= size {
		size = remaining
	}

	data, err := s.mem.ReadMemory(process.ProcessMemoryAddress(s.readPos), process.ProcessMemorySize(size))
	s.reads++
	if err != nil {
		s.cfg.Log.Debugln("Failed to read", size, "bytes at", process.ProcessMemoryAddress(s.readPos).ToString(), err)
		s.readPos += size
		s.buf = s.buf[:0]
		s.bufAddr = s.readPos
		s.offset = 0
		return
	}

	carry := 0
	if len(s.buf) > 0 && s.bufAddr+uint64(len(s.buf)) == s.readPos {
		carry = min(len(s.buf), s.minLen-1)
	}
	copy(s.buf[:carry], s.buf[len(s.buf)-carry:])
	s.buf = append(s.buf[:carry], data...)
	s.bufAddr = s.readPos - uint64(carry)
	s.readPos += size
	s.offset = 0
}

// matchBuffer tests candidate offsets in the working buffer from s.offset on.
func (s *Session) matchBuffer() (Match, bool) {
	last := len(s.buf) - s.minLen
	stride := s.cfg.Stride

	o := s.offset
	if rem := int((s.bufAddr + uint64(o)) % uint64(stride)); rem != 0 {
		o += stride - rem
	}

	for ; o <= last; o += stride {
		window := s.buf[o : o+s.minLen]
		if len(s.cfg.Trigger) > 0 && !bytes.Equal(window[:len(s.cfg.Trigger)], s.cfg.Trigger) {
			continue
		}
		if !s.predicate(window) {
			continue
		}
		s.offset = o + stride
		addr := process.ProcessMemoryAddress(s.bufAddr + uint64(o))
		return Match{
			Address: addr,
			Window:  process_blob.NewProcessBlob(addr, append([]byte(nil), window...)),
		}, true
	}

	if last+1 > s.offset {
		s.offset = last + 1
	}
	return Match{}, false
}
