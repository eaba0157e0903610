package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"gamecam/acquire"
	"gamecam/attach"
	"gamecam/process"
	"gamecam/profile"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/google/uuid"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "camwatch.yml"
	k              = koanf.New(".")
)

// Config is the camwatch configuration file
type Config struct {
	// Target is the executable name to wait for, e.g. witcher3.exe
	Target string `koanf:"target" yaml:"target"`

	// PID attaches to a running process directly, skipping the name lookup
	PID int `koanf:"pid" yaml:"pid"`

	// Profiles is an optional YAML file of extra or overriding profiles
	Profiles string `koanf:"profiles" yaml:"profiles"`

	// Output is a file to append JSON lines to; "-" is stdout
	Output string `koanf:"output" yaml:"output"`

	// FPS paces acquisitions; 0 means as fast as possible
	FPS float64 `koanf:"fps" yaml:"fps"`

	// Frames stops after this many records; 0 runs until the target exits
	Frames int `koanf:"frames" yaml:"frames"`

	Attach attach.Policy `koanf:"attach" yaml:"attach"`
	Scan   ScanConfig    `koanf:"scan" yaml:"scan"`
}

// ScanConfig selects the scripted-buffer discovery behavior
type ScanConfig struct {
	SlowFallback bool `koanf:"slow_fallback" yaml:"slow_fallback"`
	PreferNewest bool `koanf:"prefer_newest" yaml:"prefer_newest"`
	Async        bool `koanf:"async" yaml:"async"`
	ChunkSize    int  `koanf:"chunk_size" yaml:"chunk_size"`
}

func defaultConfig() Config {
	return Config{
		Output: "-",
		FPS:    30,
		Attach: attach.DefaultPolicy(),
		Scan:   ScanConfig{SlowFallback: true},
	}
}

func setupconfig() {
	k.Load(structs.Provider(defaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `camwatch attaches to a running game and writes its camera pose as JSON lines,
one record per frame.

Usage:
	camwatch <command> [flags]

Commands:
	run
	mkconf
	conf
	version

run flags override the configuration file:
	-target witcher3.exe  -pid 1234  -fps 60  -frames 100  -output poses.jsonl  -profiles extra.yml`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("camwatch version %v\n", Version)
}

// overrideFromFlags applies only the flags that were set on the command line
func overrideFromFlags(c *Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	target := fs.String("target", c.Target, "Executable name to wait for")
	pid := fs.Int("pid", c.PID, "Process ID to attach to")
	fps := fs.Float64("fps", c.FPS, "Acquisitions per second (0 = unpaced)")
	frames := fs.Int("frames", c.Frames, "Stop after this many frames (0 = until exit)")
	output := fs.String("output", c.Output, "JSON lines output file, - for stdout")
	profiles := fs.String("profiles", c.Profiles, "Extra profile YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c.Target, c.PID, c.FPS, c.Frames, c.Output, c.Profiles = *target, *pid, *fps, *frames, *output, *profiles
	return nil
}

func loadRegistry(path string) (*profile.Registry, error) {
	if path == "" {
		return profile.NewBuiltinRegistry()
	}
	extra, err := profile.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return profile.NewBuiltinRegistry(extra...)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return os.Stdout, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

func run(args []string) {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}
	if err := overrideFromFlags(&c, args); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg, err := loadRegistry(c.Profiles)
	if err != nil {
		log.Fatal(err)
	}

	proc, err := attach.Open(ctx, process.ProcessID(c.PID), c.Target, c.Attach)
	if err != nil {
		log.Fatal(err)
	}
	defer proc.Close()

	exe, err := proc.ExecutablePath()
	if err != nil {
		log.Fatal(err)
	}
	p, err := selectProfile(reg, exe, c.Target)
	if err != nil {
		log.Fatal(err)
	}

	session := uuid.NewString()
	lg := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "camwatch"))
	lg.Infoln("Session", session, "using profile", p.String())

	strategy, err := acquire.New(proc, p, strategyOptions(c.Scan, lg)...)
	if err != nil {
		log.Fatal(err)
	}
	defer strategy.Close()

	out, err := openOutput(c.Output)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	w := newWatcher(strategy, p.Executable, session, c, out, lg)
	pid := proc.GetPID()
	w.alive = func() bool { return attach.Exists(pid) }

	n, err := w.run(ctx)
	if err != nil {
		log.Fatal(err)
	}
	lg.Infoln("Wrote", n, "records")
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run(args[2:])
		return
	case "version":
		pversion()
		return
	case "help":
		root()
		return
	default:
		log.Fatal("unknown command")
	}
}
