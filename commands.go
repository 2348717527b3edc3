package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/olivier-w/wavecap/internal/catalog"
	"github.com/olivier-w/wavecap/internal/config"
	"github.com/olivier-w/wavecap/internal/media"
	"github.com/olivier-w/wavecap/internal/player"
	"github.com/olivier-w/wavecap/internal/snapshot"
	"github.com/olivier-w/wavecap/internal/ui"
	"github.com/olivier-w/wavecap/internal/util"
)

const catalogFile = "takes.db"

func (a *app) flagSet(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "usage: wavecap %s %s\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// parseInterleaved lets flags follow positional arguments, which the flag
// package alone stops at.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, errUsage
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func (a *app) play(args []string) error {
	fs := a.flagSet("play", "[--loops N] [file|dir|playlist ...]")
	loops := fs.Int("loops", 0, "extra passes per track; negative repeats forever")
	inputs, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}

	if len(inputs) == 0 {
		path, ok, err := browse(".")
		if err != nil || !ok {
			return err
		}
		inputs = []string{path}
	}

	var paths []string
	for _, in := range inputs {
		resolved, err := media.ResolveInput(in)
		if err != nil {
			return err
		}
		paths = append(paths, resolved...)
	}

	reg := player.NewRegistry(nil, a.log.Named("player"))
	defer reg.Close()

	model, err := ui.NewPlayer(reg, paths, *loops, ui.Options{Config: a.cfg, Logger: a.log})
	if err != nil {
		return err
	}
	a.log.Info("playing", zap.Int("tracks", len(paths)), zap.Int("loops", *loops))
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func browse(dir string) (string, bool, error) {
	browser := ui.NewBrowser(dir)
	if browser.HasError() {
		return "", false, browser.Error()
	}
	finalModel, err := tea.NewProgram(browser, tea.WithAltScreen()).Run()
	if err != nil {
		return "", false, err
	}
	bm, ok := finalModel.(ui.BrowserModel)
	if !ok {
		return "", false, errors.New("unexpected model type from browser")
	}
	result := bm.Result()
	if result.Cancelled {
		return "", false, nil
	}
	return result.Path, true, nil
}

// catalogPath is the configured catalog, or takes.db in the output
// directory.
func (a *app) catalogPath() string {
	if a.cfg.Record.CatalogPath != "" {
		return a.cfg.Record.CatalogPath
	}
	return filepath.Join(a.cfg.Record.OutputDir, catalogFile)
}

func (a *app) record(args []string) error {
	fs := a.flagSet("record", "[--out dir] <pcm-file|->")
	out := fs.String("out", "", "directory for finished takes")
	noCatalog := fs.Bool("no-catalog", false, "do not record takes in the catalog")
	inputs, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(inputs) != 1 {
		fs.Usage()
		return errUsage
	}
	if *out != "" {
		a.cfg.Record.OutputDir = *out
	}
	if err := os.MkdirAll(a.cfg.Record.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var store *catalog.Store
	if !*noCatalog {
		if store, err = catalog.Open(a.catalogPath()); err != nil {
			return err
		}
		defer store.Close()
	}

	src := &pcmSource{path: inputs[0]}
	defer src.Close()

	model, err := ui.NewRecorder(src.Open, ui.Options{Config: a.cfg, Logger: a.log, Catalog: store})
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// pcmSource opens the recording input for each take. Stdin is shared
// between takes; a file restarts from the top.
type pcmSource struct {
	path string
	file *os.File
}

func (s *pcmSource) Open() (io.Reader, error) {
	if s.path == "-" {
		return os.Stdin, nil
	}
	s.Close()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	s.file = f
	return f, nil
}

func (s *pcmSource) Close() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
}

func (a *app) snapshot(args []string) error {
	fs := a.flagSet("snapshot", "[flags] <file> -o out.png")
	out := fs.String("o", "", "output PNG (required)")
	frames := fs.Int("frames", a.cfg.Snapshot.Frames, "frames to animate before drawing")
	width := fs.Int("width", a.cfg.Snapshot.Width, "image width in pixels")
	height := fs.Int("height", a.cfg.Snapshot.Height, "image height in pixels")
	at := fs.Duration("at", 0, "offset into the file")
	noLabel := fs.Bool("no-label", false, "omit the caption")
	inputs, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(inputs) != 1 || *out == "" {
		fs.Usage()
		return errUsage
	}

	pc, err := a.cfg.PlotConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	err = snapshot.Write(ctx, inputs[0], *out, pc, snapshot.Options{
		Width:  *width,
		Height: *height,
		Frames: *frames,
		FPS:    a.cfg.FPS,
		At:     *at,
		Label:  !*noLabel,
		Logger: a.log.Named("snapshot"),
	})
	if err != nil {
		return err
	}
	a.log.Info("snapshot written", zap.String("out", *out), zap.Duration("took", time.Since(start)))
	fmt.Fprintf(a.stdout, "wrote %s\n", *out)
	return nil
}

func (a *app) takes(args []string) error {
	store, err := catalog.Open(a.catalogPath())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if len(args) > 0 {
		if args[0] != "rm" || len(args) != 2 {
			fmt.Fprintln(a.stderr, "usage: wavecap takes [rm <id>]")
			return errUsage
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid take id %q", args[1])
		}
		if err := store.DeleteTake(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "deleted take %d\n", id)
		return nil
	}

	takes, err := store.Takes(ctx)
	if err != nil {
		return err
	}
	if len(takes) == 0 {
		fmt.Fprintln(a.stdout, "no takes")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRECORDED\tLENGTH\tFORMAT\tSIZE\tPATH")
	for _, t := range takes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d Hz/%dch\t%s\t%s\n",
			t.ID,
			humanize.Time(t.CreatedAt),
			util.FormatDuration(t.Duration),
			t.SampleRate, t.Channels,
			humanize.Bytes(uint64(t.Size)),
			t.Path)
	}
	return tw.Flush()
}

func runConfig(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] != "init" || len(args) > 2 {
		fmt.Fprintln(stderr, "usage: wavecap config init [path]")
		return errUsage
	}
	path := config.DefaultPath()
	if len(args) == 2 {
		path = args[1]
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return nil
}
