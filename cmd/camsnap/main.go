package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"gamecam/attach"
	"gamecam/process"
	"gamecam/process_blob"
)

func usage() {
	fmt.Println(`camsnap saves and inspects offline copies of a game's memory

Usage:
	camsnap save -pid 1234 -output dir
	camsnap save -name game.exe -output dir
	camsnap show -from dir
	camsnap show -from dir -addr 0x140001000 -size 256`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "save":
		err = saveCmd(os.Args[2:])
	case "show":
		err = showCmd(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func saveCmd(args []string) error {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	pidFlag := fs.Int("pid", 0, "Process ID to attach to")
	nameFlag := fs.String("name", "", "Executable name to attach to")
	outputFlag := fs.String("output", "", "Output directory for the snapshot")
	fs.Parse(args)

	if *pidFlag == 0 && *nameFlag == "" {
		fs.Usage()
		return fmt.Errorf("--pid or --name is required")
	}
	if *outputFlag == "" {
		fs.Usage()
		return fmt.Errorf("--output is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	proc, err := attach.Open(ctx, process.ProcessID(*pidFlag), *nameFlag, attach.DefaultPolicy())
	if err != nil {
		return err
	}
	defer proc.Close()
	fmt.Printf("Attached to process %d\n", proc.GetPID())

	fmt.Printf("Saving snapshot to %s...\n", *outputFlag)
	if err := process_blob.SaveSnapshot(proc, *outputFlag); err != nil {
		return err
	}
	fmt.Println("Snapshot saved successfully.")
	return nil
}

func showCmd(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	fromFlag := fs.String("from", "", "Directory containing the snapshot")
	addrFlag := fs.String("addr", "", "Address to dump (hex); lists regions when empty")
	sizeFlag := fs.Int("size", 256, "Number of bytes to hexdump")
	colorFlag := fs.Bool("color", true, "Colorize hex dumps")
	fs.Parse(args)

	if *fromFlag == "" {
		fs.Usage()
		return fmt.Errorf("--from is required")
	}

	space, err := process_blob.LoadSnapshot(*fromFlag)
	if err != nil {
		return fmt.Errorf("loading snapshot from %s: %w", *fromFlag, err)
	}

	if *addrFlag == "" {
		return listRegions(os.Stdout, space)
	}
	return dumpAt(os.Stdout, space, *addrFlag, *sizeFlag, *colorFlag)
}
