package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gamecam/acquire"
	"gamecam/camera"
	"gamecam/profile"
	"gamecam/search"

	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/time/rate"
)

// Record is one JSON line of camwatch output
type Record struct {
	Session string         `json:"session"`
	Frame   int            `json:"frame"`
	Time    time.Time      `json:"time"`
	Exe     string         `json:"exe"`
	State   string         `json:"state"`
	Camera  *camera.Result `json:"camera,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type watcher struct {
	strategy *acquire.Strategy
	session  string
	exe      string
	limiter  *rate.Limiter
	out      *json.Encoder
	frames   int
	alive    func() bool
	log      *logger.Logger
}

func newLimiter(fps float64) *rate.Limiter {
	if fps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(fps), 1)
}

// run acquires one camera per frame until ctx ends, the frame budget is
// spent or the target exits. It returns the number of records written.
func (w *watcher) run(ctx context.Context) (int, error) {
	lastErr := ""
	frame := 0
	for ; w.frames == 0 || frame < w.frames; frame++ {
		// Wait fails only when ctx is done or its deadline would pass first
		if err := w.limiter.Wait(ctx); err != nil {
			return frame, nil
		}

		res, err := w.strategy.Acquire(ctx)
		rec := Record{
			Session: w.session,
			Frame:   frame,
			Time:    time.Now().UTC(),
			Exe:     w.exe,
			State:   w.strategy.State().String(),
		}
		if err != nil {
			rec.Error = err.Error()
			if rec.Error != lastErr && !errors.Is(err, acquire.ErrDiscoveryPending) {
				w.log.Warn("Acquire failed: ", err)
			}
			lastErr = rec.Error
		} else {
			if lastErr != "" {
				w.log.Infoln("Camera recovered at frame", frame)
			}
			lastErr = ""
			rec.Camera = &res
		}

		if err := w.out.Encode(rec); err != nil {
			return frame, fmt.Errorf("error writing record: %w", err)
		}

		if w.alive != nil && !w.alive() {
			w.log.Infoln("Target exited after", frame+1, "frames")
			return frame + 1, nil
		}
	}
	return frame, nil
}

func newWatcher(strategy *acquire.Strategy, exe, session string, cfg Config, out io.Writer, log *logger.Logger) *watcher {
	return &watcher{
		strategy: strategy,
		session:  session,
		exe:      exe,
		limiter:  newLimiter(cfg.FPS),
		out:      json.NewEncoder(out),
		frames:   cfg.Frames,
		log:      log,
	}
}

// selectProfile matches the attached image first and the configured target
// name second, since Wine may report a loader path for the image
func selectProfile(reg *profile.Registry, exe, target string) (profile.Profile, error) {
	if p, ok := reg.Lookup(exe); ok {
		return p, nil
	}
	if target != "" {
		if p, ok := reg.Lookup(target); ok {
			return p, nil
		}
	}
	return profile.Profile{}, fmt.Errorf("no profile for %q", exe)
}

func strategyOptions(cfg ScanConfig, log *logger.Logger) []acquire.Option {
	opts := []acquire.Option{acquire.WithLogger(log)}
	if cfg.SlowFallback {
		opts = append(opts, acquire.WithSlowFallback())
	}
	if cfg.PreferNewest {
		opts = append(opts, acquire.WithPreferNewest())
	}
	if cfg.Async {
		opts = append(opts, acquire.WithAsyncDiscovery())
	}
	if cfg.ChunkSize > 0 {
		opts = append(opts, acquire.WithScanOptions(search.WithChunkSize(cfg.ChunkSize)))
	}
	return opts
}
