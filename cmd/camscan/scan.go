package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gamecam/camera"
	"gamecam/countbuf"
	"gamecam/hexdump"
	"gamecam/process"
	"gamecam/search"
	"gamecam/table"

	"github.com/Moonlight-Companies/gologger/logger"
)

type scanConfig struct {
	// layout is used unless pattern is set
	layout  countbuf.Layout
	pattern []AOBPart
	slow    bool
	max     int
	chunk   int
}

type hit struct {
	match  search.Match
	result countbuf.Result
}

func (c scanConfig) predicate() (int, func([]byte) bool, []search.Option, error) {
	var opts []search.Option
	// byte patterns are tested at every offset
	if c.slow || len(c.pattern) > 0 {
		opts = append(opts, search.WithSlowMode())
	}
	if c.chunk > 0 {
		opts = append(opts, search.WithChunkSize(c.chunk))
	}

	if len(c.pattern) > 0 {
		value, mask := splitPattern(c.pattern)
		return len(value), search.MatchMasked(value, mask), opts, nil
	}

	if err := c.layout.Validate(); err != nil {
		return 0, nil, nil, err
	}
	opts = append(opts, search.WithTrigger(countbuf.TriggerBytes()))
	return c.layout.Size(), c.layout.Match, opts, nil
}

// scanTarget collects up to cfg.max matches in address order
func scanTarget(ctx context.Context, mem process.RemoteMemory, cfg scanConfig, log *logger.Logger) ([]hit, error) {
	minLen, pred, opts, err := cfg.predicate()
	if err != nil {
		return nil, err
	}
	opts = append(opts, search.WithLogger(log))

	session, err := search.NewSession(mem, minLen, pred, opts...)
	if err != nil {
		return nil, err
	}

	var hits []hit
	for cfg.max <= 0 || len(hits) < cfg.max {
		m, err := session.Next(ctx)
		if errors.Is(err, search.ErrExhausted) {
			break
		}
		if err != nil {
			return hits, err
		}
		h := hit{match: m}
		if len(cfg.pattern) == 0 {
			h.result = cfg.layout.Verify(m.Window.Data())
		}
		hits = append(hits, h)
	}

	log.Infoln("Scanned", session.Regions(), "regions,", len(hits), "matches")
	return hits, nil
}

func report(w io.Writer, hits []hit, cfg scanConfig, colorize bool) error {
	for i, h := range hits {
		fmt.Fprintf(w, "Match %d at %s:\n", i+1, h.match.Address.ToString())

		var sections []countbuf.Section
		if len(cfg.pattern) == 0 {
			sections = cfg.layout.Sections()
		}
		fmt.Fprint(w, hexdump.DumpBlob(h.match.Window, sections, colorize))

		if len(cfg.pattern) == 0 && h.result.Valid {
			fmt.Fprintf(w, "counter %g\n", h.result.Counter)
			if len(h.result.Payload) >= 12 {
				t, err := camera.TransformFromRowMajor(h.result.Payload[:12])
				if err != nil {
					return err
				}
				for row := 0; row < 3; row++ {
					fmt.Fprintf(w, "  [% 12.5f % 12.5f % 12.5f % 14.5f]\n", t.At(row, 0), t.At(row, 1), t.At(row, 2), t.At(row, 3))
				}
			}
			if len(h.result.Payload) > 12 {
				fmt.Fprintf(w, "fov %g\n", h.result.Payload[12])
			}
		}
		fmt.Fprintln(w)
	}

	if len(hits) < 2 {
		return nil
	}

	tbl := table.New(
		table.ColumnSpec{Header: "#", AlignRight: true},
		table.ColumnSpec{Header: "ADDRESS"},
		table.ColumnSpec{Header: "COUNTER", AlignRight: true},
	)
	for i, h := range hits {
		counter := ""
		if h.result.Valid {
			counter = fmt.Sprintf("%g", h.result.Counter)
		}
		tbl.AddRow(fmt.Sprint(i+1), h.match.Address.ToString(), counter)
	}
	return tbl.Render(w)
}
