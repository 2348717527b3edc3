package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/olivier-w/wavecap/internal/config"
	"github.com/olivier-w/wavecap/internal/logging"
)

const usage = `usage: wavecap [--config file] [-v] <command> [args]

commands:
  play [--loops N] [file|dir|playlist ...]   play files with a live waveform
  record [--out dir] <pcm-file|->              record S16LE PCM with a live waveform
  snapshot [flags] <file> -o out.png           render the waveform to a PNG
  takes [rm <id>]                              list or delete cataloged recordings
  config init [path]                           write the default configuration
`

// errUsage is returned for bad invocations; usage has already been printed.
var errUsage = errors.New("invalid arguments")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("wavecap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "configuration file")
	verbose := fs.Bool("v", false, "log to stderr (non-interactive commands)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		// bare wavecap opens the browser like play with no files
		rest = []string{"play"}
	}
	cmd, cmdArgs := rest[0], rest[1:]

	// config init must work even when the current config is broken
	if cmd == "config" {
		return runConfig(cmdArgs, stdout, stderr)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	interactive := cmd == "play" || cmd == "record"
	log, err := logging.New(logging.Options{
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    *verbose && !interactive,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a := &app{cfg: cfg, log: log, stdout: stdout, stderr: stderr}
	switch cmd {
	case "play":
		return a.play(cmdArgs)
	case "record":
		return a.record(cmdArgs)
	case "snapshot":
		return a.snapshot(cmdArgs)
	case "takes":
		return a.takes(cmdArgs)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
}
