package main

import (
	"flag"
	"fmt"
	"os"

	"gamecam/profile"
)

func usage() {
	fmt.Println(`camprofile lists and exports the camera profiles camwatch knows about

Usage:
	camprofile list [-profiles extra.yml] [-color]
	camprofile depth [-profiles extra.yml] -exe crysis.exe 0 8388608 16777215
	camprofile export [-profiles extra.yml] [-exe crysis.exe] [-output profiles.yml]`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listCmd(os.Args[2:])
	case "depth":
		err = depthCmd(os.Args[2:])
	case "export":
		err = exportCmd(os.Args[2:])
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

func listCmd(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	profilesFlag := fs.String("profiles", "", "Extra profile YAML file")
	colorFlag := fs.Bool("color", false, "Colorize the acquisition kind")
	fs.Parse(args)

	reg, err := loadRegistry(*profilesFlag)
	if err != nil {
		return err
	}
	return listProfiles(os.Stdout, reg.All(), *colorFlag)
}

func depthCmd(args []string) error {
	fs := flag.NewFlagSet("depth", flag.ExitOnError)
	profilesFlag := fs.String("profiles", "", "Extra profile YAML file")
	exeFlag := fs.String("exe", "", "Executable whose depth curve to use")
	fs.Parse(args)

	if *exeFlag == "" {
		fs.Usage()
		return fmt.Errorf("--exe is required")
	}
	reg, err := loadRegistry(*profilesFlag)
	if err != nil {
		return err
	}
	p, ok := reg.Lookup(*exeFlag)
	if !ok {
		return fmt.Errorf("no profile for %q", *exeFlag)
	}
	return decodeDepth(os.Stdout, p, fs.Args())
}

func exportCmd(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	profilesFlag := fs.String("profiles", "", "Extra profile YAML file")
	exeFlag := fs.String("exe", "", "Export only this executable's profile")
	outputFlag := fs.String("output", "", "Write to this file instead of stdout")
	fs.Parse(args)

	reg, err := loadRegistry(*profilesFlag)
	if err != nil {
		return err
	}
	profiles := reg.All()
	if *exeFlag != "" {
		p, ok := reg.Lookup(*exeFlag)
		if !ok {
			return fmt.Errorf("no profile for %q", *exeFlag)
		}
		profiles = []profile.Profile{p}
	}

	if *outputFlag == "" {
		return exportProfiles(os.Stdout, profiles)
	}
	f, err := os.Create(*outputFlag)
	if err != nil {
		return err
	}
	defer f.Close()
	return exportProfiles(f, profiles)
}
