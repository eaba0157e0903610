// Package attach finds and opens a game process, waiting for it to start.
package attach

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gamecam/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/cenkalti/backoff"
)

// Finder looks a process up by executable name
type Finder func(name string) (process.ProcessInfo, error)

// Policy controls how long WaitFor keeps polling for a process that has not
// started yet. A zero MaxElapsed waits until the context ends.
type Policy struct {
	InitialInterval time.Duration `koanf:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval" yaml:"max_interval"`
	MaxElapsed      time.Duration `koanf:"max_elapsed" yaml:"max_elapsed"`
}

// DefaultPolicy polls quickly at first and settles at once every 5 seconds
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialInterval,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         p.MaxInterval,
		MaxElapsedTime:      p.MaxElapsed,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithContext(b, ctx)
}

// WaitFor polls find until a process named name shows up. Lookup errors
// other than "not running" end the wait immediately.
func WaitFor(ctx context.Context, name string, find Finder, policy Policy) (process.ProcessInfo, error) {
	log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "attach"))

	var info process.ProcessInfo
	var fatal error
	attempts := 0
	op := func() error {
		attempts++
		found, err := find(name)
		if errors.Is(err, os.ErrNotExist) {
			if attempts == 1 {
				log.Infoln("Waiting for", name, "to start")
			}
			return err
		}
		if err != nil {
			fatal = err
			return nil
		}
		info = found
		return nil
	}

	if err := backoff.Retry(op, policy.backOff(ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return process.ProcessInfo{}, fmt.Errorf("waiting for %s: %w", name, ctxErr)
		}
		return process.ProcessInfo{}, fmt.Errorf("waiting for %s after %d attempts: %w", name, attempts, err)
	}
	if fatal != nil {
		return process.ProcessInfo{}, fatal
	}

	log.Infoln("Found", name, "as pid", info.PID)
	return info, nil
}

// Open resolves name (or uses pid when non-zero) and opens the process
func Open(ctx context.Context, pid process.ProcessID, name string, policy Policy) (process.Process, error) {
	if pid == 0 {
		if name == "" {
			return nil, errors.New("attach: need a pid or an executable name")
		}
		info, err := WaitFor(ctx, name, Find, policy)
		if err != nil {
			return nil, err
		}
		pid = info.PID
	}
	return OpenPID(pid)
}
