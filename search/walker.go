package search

import (
	"fmt"

	"gamecam/process"
	"gamecam/process/memory_map"

	"github.com/Moonlight-Companies/gologger/logger"
)

// Walker enumerates the scannable regions of a remote address space in
// ascending order, starting at a cursor and stopping at a ceiling.
type Walker struct {
	mem     process.RemoteMemory
	cursor  process.ProcessMemoryAddress
	ceiling process.ProcessMemoryAddress
	done    bool
	log     *logger.Logger

	anomalies int
}

// NewWalker creates a walker over mem covering [start, ceiling)
func NewWalker(mem process.RemoteMemory, start, ceiling process.ProcessMemoryAddress, log *logger.Logger) *Walker {
	if log == nil {
		log = defaultLogger()
	}
	return &Walker{
		mem:     mem,
		cursor:  start,
		ceiling: ceiling,
		log:     log,
	}
}

// Cursor returns the first address not yet covered by the walk
func (w *Walker) Cursor() process.ProcessMemoryAddress {
	return w.cursor
}

// Anomalies returns how many region queries returned a region that did not
// contain the queried address.
func (w *Walker) Anomalies() int {
	return w.anomalies
}

// Next returns the next committed, readable region. The returned item is
// clipped to [cursor, ceiling). ok is false once the walk is exhausted,
// including when a region query fails or the cursor cannot advance.
func (w *Walker) Next() (memory_map.MemoryMapItem, bool) {
	for !w.done && w.cursor < w.ceiling {
		item, err := w.mem.QueryRegion(w.cursor)
		if err != nil {
			w.log.Debugln("Region query failed at", w.cursor.ToString(), err)
			w.done = true
			break
		}
		if item.Size == 0 {
			w.done = true
			break
		}

		cursor := uint64(w.cursor)
		start, end := item.Address, item.End()

		if end <= cursor {
			// the query returned a region that does not contain the cursor
			w.anomalies++
			w.log.Warn(fmt.Sprintf("Region anomaly: query at %s returned %s, skipping %d bytes",
				w.cursor.ToString(), item.String(), item.Size))
			next := cursor + uint64(item.Size)
			if next <= cursor {
				w.done = true
				break
			}
			w.cursor = process.ProcessMemoryAddress(next)
			continue
		}

		if start > cursor {
			// the region is still walked, the bytes before it are not
			w.anomalies++
			w.log.Warn(fmt.Sprintf("Region anomaly: query at %s returned %s, which starts %d bytes later",
				w.cursor.ToString(), item.String(), start-cursor))
		}
		if start < cursor {
			start = cursor
		}
		if end > uint64(w.ceiling) {
			end = uint64(w.ceiling)
		}
		w.cursor = process.ProcessMemoryAddress(end)

		if !item.IsScannable() || end <= start {
			continue
		}

		item.Address = start
		item.Size = uint(end - start)
		return item, true
	}

	w.done = true
	return memory_map.MemoryMapItem{}, false
}
