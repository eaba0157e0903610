// Package acquire turns a target profile into a per-frame "current camera"
// read. Fixed-offset profiles read at module base + offset on every call.
// Scripted-buffer profiles scan the address space once, remember where the
// buffer lives and re-verify it on every later read.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"gamecam/camera"
	"gamecam/countbuf"
	"gamecam/process"
	"gamecam/process/memory_map"
	"gamecam/process_blob"
	"gamecam/profile"
	"gamecam/search"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrResolution means the camera's module is not loaded (yet)
	ErrResolution = errors.New("module not resolved")
	// ErrRead means a memory read failed or came back short
	ErrRead = errors.New("memory read failed")
	// ErrVerification means a buffer read back from the cached location failed its checksum
	ErrVerification = errors.New("checksum verification failed")
	// ErrScanExhausted means the whole address space was scanned without a valid buffer
	ErrScanExhausted = errors.New("scan found no valid buffer")
	// ErrDiscoveryPending means a background scan is running and no location is known yet
	ErrDiscoveryPending = errors.New("discovery pending")
)

// Target is the process the camera is read from
type Target interface {
	process.RemoteMemory
	process.ModuleResolver
}

// State is the position in the acquisition state machine
type State int

const (
	Uninitialized State = iota
	ModuleResolved
	Ready
	LocationUnknown
	LocationFound
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case ModuleResolved:
		return "ModuleResolved"
	case Ready:
		return "Ready"
	case LocationUnknown:
		return "LocationUnknown"
	case LocationFound:
		return "LocationFound"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const discoverKey = "discover"

// Strategy acquires the camera of one process according to one profile.
// It is safe for concurrent use.
type Strategy struct {
	target  Target
	profile profile.Profile
	log     *logger.Logger

	slowFallback bool
	preferNewest bool
	async        bool
	scanOptions  []search.Option

	mu        sync.Mutex
	resolved  bool
	base      process.ProcessMemoryAddress
	attempted bool
	hasCache  bool
	cached    process.ProcessMemoryAddress
	pending   chan struct{}
	lastErr   error

	group  singleflight.Group
	scans  atomic.Int64
	ctx    context.Context
	cancel context.CancelFunc
}

// Option is a function that configures a Strategy
type Option func(*Strategy)

// WithSlowFallback rescans every byte offset when the aligned scan finds nothing
func WithSlowFallback() Option {
	return func(s *Strategy) {
		s.slowFallback = true
	}
}

// WithPreferNewest scans the whole address space and keeps the valid buffer
// with the highest counter instead of the first one found.
func WithPreferNewest() Option {
	return func(s *Strategy) {
		s.preferNewest = true
	}
}

// WithAsyncDiscovery makes Acquire start discovery in the background and
// return ErrDiscoveryPending instead of blocking on a scan.
func WithAsyncDiscovery() Option {
	return func(s *Strategy) {
		s.async = true
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Strategy) {
		s.log = log
	}
}

// WithScanOptions passes options through to every scan session
func WithScanOptions(opts ...search.Option) Option {
	return func(s *Strategy) {
		s.scanOptions = append(s.scanOptions, opts...)
	}
}

// New creates a strategy for target. The profile must be valid.
func New(target Target, p profile.Profile, options ...Option) (*Strategy, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Strategy{
		target:  target,
		profile: p,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "acquire-"+p.Executable))
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Close stops any background discovery
func (s *Strategy) Close() {
	s.cancel()
}

// Profile returns the profile the strategy was built with
func (s *Strategy) Profile() profile.Profile {
	return s.profile
}

// State reports where the strategy is in its state machine
func (s *Strategy) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.resolved:
		return Uninitialized
	case s.profile.Kind != profile.ScriptedBufferScan:
		return Ready
	case s.hasCache:
		return LocationFound
	case s.attempted:
		return LocationUnknown
	}
	return ModuleResolved
}

// CachedLocation returns the remembered buffer address, if any
func (s *Strategy) CachedLocation() (process.ProcessMemoryAddress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached, s.hasCache
}

// Scans returns how many address-space scans have been started
func (s *Strategy) Scans() int64 {
	return s.scans.Load()
}

// Acquire reads the current camera. Every failure returns an error wrapping
// one of the package's sentinel errors; all of them are retryable.
func (s *Strategy) Acquire(ctx context.Context) (camera.Result, error) {
	base, err := s.resolve()
	if err != nil {
		return camera.Result{}, err
	}

	var res camera.Result
	switch s.profile.Kind {
	case profile.FixedOffsetSingleRead:
		res, err = s.readSingle(base)
	case profile.FixedOffsetColumnwiseRead:
		res, err = s.readColumns(base)
	case profile.ScriptedBufferScan:
		res, err = s.readScripted(ctx)
	default:
		err = fmt.Errorf("unknown acquisition kind %s", s.profile.Kind)
	}
	if err != nil {
		return camera.Result{}, err
	}

	if s.profile.PostRotation != nil && res.Status.Has(camera.RotationGood) {
		res.Transform = res.Transform.Apply(*s.profile.PostRotation)
	}
	return res, nil
}

func (s *Strategy) resolve() (process.ProcessMemoryAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return s.base, nil
	}

	base, err := s.target.ModuleBase(s.profile.Module)
	if err != nil {
		name := s.profile.Module
		if name == "" {
			name = "main image"
		}
		return 0, fmt.Errorf("%w: %s: %w", ErrResolution, name, err)
	}
	s.base = base
	s.resolved = true
	s.log.Infoln("Resolved", s.moduleName(), "at", base.ToString())
	return base, nil
}

func (s *Strategy) moduleName() string {
	if s.profile.Module == "" {
		return "main image"
	}
	return memory_map.BaseName(s.profile.Module)
}

// readScalars reads n consecutive scalars at addr
func (s *Strategy) readScalars(step string, addr process.ProcessMemoryAddress, n int, scalar countbuf.Scalar) ([]float64, error) {
	size := n * scalar.Size()
	data, err := s.target.ReadMemory(addr, process.ProcessMemorySize(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %d bytes at %s: %w", ErrRead, step, size, addr.ToString(), err)
	}
	if len(data) < size {
		return nil, fmt.Errorf("%w: %s: %d of %d bytes at %s", ErrRead, step, len(data), size, addr.ToString())
	}

	blob := process_blob.NewProcessBlob(addr, data)
	vals := make([]float64, n)
	for i := range vals {
		off := process.ProcessMemoryAddress(i * scalar.Size())
		if scalar == countbuf.Float64 {
			vals[i], err = blob.OffsetFLOAT64(off)
		} else {
			var f float32
			f, err = blob.OffsetFLOAT32(off)
			vals[i] = float64(f)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, step, err)
		}
	}
	return vals, nil
}

func (s *Strategy) readSingle(base process.ProcessMemoryAddress) (camera.Result, error) {
	n := 12
	if s.profile.Shape == profile.Shape4x4RowMajor {
		n = 16
	}
	addr := base + process.ProcessMemoryAddress(s.profile.Offset)
	vals, err := s.readScalars(s.profile.Shape.String(), addr, n, s.profile.MatrixScalar())
	if err != nil {
		return camera.Result{}, err
	}
	t, err := camera.TransformFromRowMajor(vals)
	if err != nil {
		return camera.Result{}, err
	}
	return camera.Result{Status: camera.AllGood, Transform: t}, nil
}

// readColumns reads 3 scalars per column. Any failed column fails the call.
func (s *Strategy) readColumns(base process.ProcessMemoryAddress) (camera.Result, error) {
	var t camera.Transform
	start := base + process.ProcessMemoryAddress(s.profile.Offset)
	scalar := s.profile.MatrixScalar()

	if s.profile.Shape == profile.ShapePositionOnly {
		vals, err := s.readScalars("position", start, 3, scalar)
		if err != nil {
			return camera.Result{}, err
		}
		t.SetColumn(camera.PositionColumn, [3]float64{vals[0], vals[1], vals[2]})
		return camera.Result{Status: camera.PositionGood, Transform: t}, nil
	}

	for col := 0; col < 4; col++ {
		addr := start + process.ProcessMemoryAddress(uint64(col)*s.profile.ColumnStep())
		vals, err := s.readScalars(fmt.Sprintf("column %d", col), addr, 3, scalar)
		if err != nil {
			return camera.Result{}, err
		}
		t.SetColumn(col, [3]float64{vals[0], vals[1], vals[2]})
	}
	return camera.Result{Status: camera.AllGood, Transform: t}, nil
}

func (s *Strategy) readScripted(ctx context.Context) (camera.Result, error) {
	addr, ok := s.CachedLocation()
	if !ok {
		if s.async {
			s.DiscoverAsync()
			s.mu.Lock()
			last := s.lastErr
			s.mu.Unlock()
			if last != nil {
				return camera.Result{}, fmt.Errorf("%w: previous attempt: %v", ErrDiscoveryPending, last)
			}
			return camera.Result{}, ErrDiscoveryPending
		}
		var err error
		if addr, err = s.Discover(ctx); err != nil {
			return camera.Result{}, err
		}
	}

	layout := s.profile.Buffer
	data, err := s.target.ReadMemory(addr, process.ProcessMemorySize(layout.Size()))
	if err != nil {
		// the location is kept: a failed read is treated as transient
		return camera.Result{}, fmt.Errorf("%w: scripted buffer: %d bytes at %s: %w", ErrRead, layout.Size(), addr.ToString(), err)
	}

	res := layout.Verify(data)
	if !res.Valid {
		s.forget(addr)
		return camera.Result{}, fmt.Errorf("%w: scripted buffer at %s, location cleared", ErrVerification, addr.ToString())
	}
	return s.resultFromPayload(res.Payload)
}

func (s *Strategy) resultFromPayload(payload []float64) (camera.Result, error) {
	t, err := camera.TransformFromRowMajor(payload)
	if err != nil {
		return camera.Result{}, err
	}
	res := camera.Result{Status: camera.AllGood, Transform: t}
	if len(payload) > 12 {
		switch s.profile.Fov {
		case profile.FovVertical:
			res.FovV = payload[12]
		case profile.FovHorizontal:
			res.FovH = payload[12]
		}
	}
	return res, nil
}

func (s *Strategy) forget(addr process.ProcessMemoryAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasCache && s.cached == addr {
		s.hasCache = false
		s.log.Warn("Buffer at ", addr.ToString(), " failed verification, will rescan")
	}
}

// Discover scans for the scripted buffer and caches its location. Concurrent
// callers share one scan. It returns immediately when a location is cached.
func (s *Strategy) Discover(ctx context.Context) (process.ProcessMemoryAddress, error) {
	if s.profile.Kind != profile.ScriptedBufferScan {
		return 0, fmt.Errorf("profile %s does not scan", s.profile.Executable)
	}
	if addr, ok := s.CachedLocation(); ok {
		return addr, nil
	}

	v, err, _ := s.group.Do(discoverKey, func() (interface{}, error) {
		if addr, ok := s.CachedLocation(); ok {
			return addr, nil
		}
		addr, err := s.scan(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.attempted = true
		s.lastErr = err
		if err != nil {
			return nil, err
		}
		s.cached = addr
		s.hasCache = true
		return addr, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(process.ProcessMemoryAddress), nil
}

// DiscoverAsync starts Discover in the background unless a background
// discovery is already running. The returned channel is closed when it ends.
func (s *Strategy) DiscoverAsync() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return s.pending
	}
	done := make(chan struct{})
	s.pending = done

	go func() {
		defer close(done)
		if _, err := s.Discover(s.ctx); err != nil {
			s.log.Debugln("Background discovery failed:", err)
		}
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
	}()
	return done
}

func (s *Strategy) scan(ctx context.Context) (process.ProcessMemoryAddress, error) {
	layout := s.profile.Buffer
	opts := append([]search.Option{
		search.WithTrigger(countbuf.TriggerBytes()),
		search.WithLogger(s.log),
	}, s.scanOptions...)

	s.log.Infoln("Scanning for", layout.Scalar, "buffer of", layout.Size(), "bytes")
	addr, err := s.scanOnce(ctx, opts)
	if errors.Is(err, search.ErrExhausted) && s.slowFallback {
		s.log.Infoln("Aligned scan found nothing, rescanning every byte")
		addr, err = s.scanOnce(ctx, append(opts, search.WithSlowMode()))
	}
	if errors.Is(err, search.ErrExhausted) {
		return 0, fmt.Errorf("%w: %s buffer of %d bytes: %w", ErrScanExhausted, layout.Scalar, layout.Size(), err)
	}
	if err != nil {
		return 0, err
	}
	s.log.Infoln("Found scripted buffer at", addr.ToString())
	return addr, nil
}

func (s *Strategy) scanOnce(ctx context.Context, opts []search.Option) (process.ProcessMemoryAddress, error) {
	s.scans.Add(1)
	layout := s.profile.Buffer
	session, err := search.NewSession(s.target, layout.Size(), layout.Match, opts...)
	if err != nil {
		return 0, err
	}

	if !s.preferNewest {
		m, err := session.Next(ctx)
		if err != nil {
			return 0, err
		}
		return m.Address, nil
	}

	var best process.ProcessMemoryAddress
	var bestCounter float64
	found := 0
	for {
		m, err := session.Next(ctx)
		if errors.Is(err, search.ErrExhausted) {
			break
		}
		if err != nil {
			return 0, err
		}
		res := layout.Verify(m.Window.Data())
		if found == 0 || res.Counter > bestCounter {
			best, bestCounter = m.Address, res.Counter
		}
		found++
	}
	if found == 0 {
		return 0, search.ErrExhausted
	}
	if found > 1 {
		s.log.Infoln("Found", found, "valid buffers, newest counter", bestCounter, "at", best.ToString())
	}
	return best, nil
}
