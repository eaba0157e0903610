package process_blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gamecam/process"
	"gamecam/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	metadataFile  = "metadata.json"
	memoryMapFile = "process_memory_map.json"

	// regions above this size are not written to snapshots
	maxSnapshotRegion = 100 * 1024 * 1024
)

// SnapshotMetadata identifies the process a snapshot was taken from
type SnapshotMetadata struct {
	PID  process.ProcessID `json:"pid"`
	Name string            `json:"name"`
	Exe  string            `json:"exe"`
}

func blobFileName(dirname string, item memory_map.MemoryMapItem) string {
	return filepath.Join(dirname, fmt.Sprintf("blob_0x%x_%d.bin", item.Address, item.Size))
}

// SaveSnapshot writes the readable memory of proc to dirname so scans can be
// replayed offline with LoadSnapshot.
func SaveSnapshot(proc process.Process, dirname string) error {
	log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "snapshot"))

	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	exe, err := proc.ExecutablePath()
	if err != nil {
		log.Warn("Executable path unavailable: ", err)
	}
	metadata := SnapshotMetadata{
		PID:  proc.GetPID(),
		Name: memory_map.BaseName(exe),
		Exe:  exe,
	}
	if err := writeJSON(filepath.Join(dirname, metadataFile), metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := proc.UpdateMemoryMap(); err != nil {
		return fmt.Errorf("failed to update memory map: %w", err)
	}
	mm, err := proc.GetMemoryMap()
	if err != nil {
		return fmt.Errorf("failed to get memory map: %w", err)
	}
	if err := writeJSON(filepath.Join(dirname, memoryMapFile), mm); err != nil {
		return fmt.Errorf("failed to write memory map: %w", err)
	}

	saved, skipped, failed := 0, 0, 0
	for _, region := range mm {
		if !region.IsScannable() {
			skipped++
			continue
		}
		if region.Size > maxSnapshotRegion {
			log.Infoln("Skipping large region at", fmt.Sprintf("%x", region.Address), "(size:", region.Size/1024/1024, "MB)")
			skipped++
			continue
		}

		data, err := proc.ReadMemory(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			log.Debugln("Failed to read memory region at", fmt.Sprintf("%x", region.Address), err)
			failed++
			continue
		}

		if err := os.WriteFile(blobFileName(dirname, region), data, 0644); err != nil {
			return fmt.Errorf("failed to write region 0x%x: %w", region.Address, err)
		}
		saved++
	}

	log.Infoln("Snapshot saved:", saved, "regions saved,", skipped, "skipped,", failed, "read errors")
	return nil
}

// LoadSnapshot reads a snapshot directory written by SaveSnapshot.
// Regions whose blob file is missing are kept as non-committed entries.
func LoadSnapshot(dirname string) (*Space, error) {
	var metadata SnapshotMetadata
	if err := readJSON(filepath.Join(dirname, metadataFile), &metadata); err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var mm []memory_map.MemoryMapItem
	if err := readJSON(filepath.Join(dirname, memoryMapFile), &mm); err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}

	space := NewSpace()
	space.PID = metadata.PID
	space.Name = metadata.Name
	space.Exe = metadata.Exe

	for _, region := range mm {
		filename := blobFileName(dirname, region)
		data, err := os.ReadFile(filename)
		if os.IsNotExist(err) {
			space.Reserve(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read blob %s: %w", filename, err)
		}
		if err := space.Map(process.ProcessMemoryAddress(region.Address), data, region.Perms, region.Path); err != nil {
			return nil, err
		}
	}

	return space, nil
}

func writeJSON(filename string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}

func readJSON(filename string, v interface{}) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
