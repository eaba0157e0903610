package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"gamecam/attach"
	"gamecam/countbuf"
	"gamecam/process"
	"gamecam/process_blob"
	"gamecam/profile"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to attach to")
	nameFlag := flag.String("name", "", "Executable name to attach to")
	snapshotFlag := flag.String("snapshot", "", "Scan a snapshot directory written by camsnap instead of a live process")
	aobFlag := flag.String("aob", "", "Array of bytes to scan for instead of a counter buffer (e.g., '00,ba,ad,??,f0' or 'u64:4429373075689993337')")
	profileFlag := flag.String("profile", "", "Take the buffer layout from this executable's profile")
	profilesFlag := flag.String("profiles", "", "Extra profile YAML file")
	scalarFlag := flag.String("scalar", "double", "Buffer scalar type: float or double")
	countFlag := flag.Int("count", 13, "Payload values in the buffer")
	strideFlag := flag.Int("stride", 1, "Buffer interleave stride")
	slowFlag := flag.Bool("slow", false, "Test every byte offset instead of every 4th (always on with -aob)")
	maxFlag := flag.Int("max", 1, "Stop after this many matches (0 = all)")
	chunkFlag := flag.Int("chunk", 0, "Read chunk size in bytes")
	colorFlag := flag.Bool("color", true, "Colorize hex dumps")
	flag.Parse()

	if *pidFlag == 0 && *nameFlag == "" && *snapshotFlag == "" {
		fmt.Println("Error: one of --pid, --name or --snapshot is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg := scanConfig{slow: *slowFlag, max: *maxFlag, chunk: *chunkFlag}
	if *aobFlag != "" {
		pattern, err := parseAOB(*aobFlag)
		if err != nil {
			fmt.Printf("Error parsing AOB: %v\n", err)
			os.Exit(1)
		}
		cfg.pattern = pattern
	} else {
		layout, err := chooseLayout(*profileFlag, *profilesFlag, *scalarFlag, *countFlag, *strideFlag)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		cfg.layout = layout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var mem process.Process
	if *snapshotFlag != "" {
		space, err := process_blob.LoadSnapshot(*snapshotFlag)
		if err != nil {
			fmt.Printf("Error loading snapshot %s: %v\n", *snapshotFlag, err)
			os.Exit(1)
		}
		mem = space
		fmt.Printf("Loaded snapshot of %s (pid %d)\n", space.Name, space.PID)
	} else {
		proc, err := attach.Open(ctx, process.ProcessID(*pidFlag), *nameFlag, attach.DefaultPolicy())
		if err != nil {
			fmt.Printf("Error attaching: %v\n", err)
			os.Exit(1)
		}
		defer proc.Close()
		mem = proc
		fmt.Printf("Attached to process %d\n", proc.GetPID())
	}

	if len(cfg.pattern) > 0 {
		fmt.Printf("Scanning for pattern: %s\n", formatPattern(cfg.pattern))
	} else {
		fmt.Printf("Scanning for %s buffer: %d payload values, stride %d, %d bytes\n",
			cfg.layout.Scalar, cfg.layout.PayloadCount, cfg.layout.Stride, cfg.layout.Size())
	}

	log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "camscan"))
	hits, err := scanTarget(ctx, mem, cfg, log)
	if err != nil {
		fmt.Printf("Error scanning memory: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d matches:\n", len(hits))

	if err := report(os.Stdout, hits, cfg, *colorFlag); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func chooseLayout(exe, profilesFile, scalar string, count, stride int) (countbuf.Layout, error) {
	if exe == "" {
		l := countbuf.Layout{Scalar: countbuf.Float64, PayloadCount: count, Stride: stride}
		switch scalar {
		case "float", "float32":
			l.Scalar = countbuf.Float32
		case "double", "float64":
		default:
			return countbuf.Layout{}, fmt.Errorf("unknown scalar %q", scalar)
		}
		return l, l.Validate()
	}

	var extra []profile.Profile
	if profilesFile != "" {
		var err error
		if extra, err = profile.LoadFile(profilesFile); err != nil {
			return countbuf.Layout{}, err
		}
	}
	reg, err := profile.NewBuiltinRegistry(extra...)
	if err != nil {
		return countbuf.Layout{}, err
	}
	p, ok := reg.Lookup(exe)
	if !ok {
		return countbuf.Layout{}, fmt.Errorf("no profile for %q", exe)
	}
	if p.Kind != profile.ScriptedBufferScan {
		return countbuf.Layout{}, fmt.Errorf("profile %s reads a fixed offset, it has no buffer to scan for", p.Executable)
	}
	return p.Buffer, nil
}
