// Package snapshot renders the waveform for a point in an audio file to a
// still image without opening an audio device.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/olivier-w/wavecap/internal/meter"
	"github.com/olivier-w/wavecap/internal/player"
	"github.com/olivier-w/wavecap/internal/plot"
	"github.com/olivier-w/wavecap/internal/surface"
	"github.com/olivier-w/wavecap/internal/util"
)

const (
	labelMargin = 8
	labelHeight = 24
)

// Options control the rendered frame.
type Options struct {
	Width  int
	Height int
	Frames int           // plot ticks to run before drawing
	FPS    int           // audio consumed per tick is 1/FPS seconds
	At     time.Duration // skip this much audio first
	Label  bool
	Logger *zap.Logger
}

// meterSource adapts a meter to plot.LevelSource.
type meterSource struct{ *meter.Meter }

func (s meterSource) UpdateMeters() { s.Refresh() }

// Render decodes path, runs the plot for opts.Frames ticks fed from the
// decoded audio and draws the final state.
func Render(ctx context.Context, path string, cfg plot.Config, opts Options) (*surface.Image, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.Frames < 1 {
		opts.Frames = 1
	}
	if opts.FPS < 1 {
		opts.FPS = 60
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	stream, err := player.OpenStream(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer stream.Close()

	if err := skip(stream, opts.At); err != nil {
		return nil, err
	}

	clock := plot.NewManualClock()
	p, err := plot.New(clock, plot.WithConfig(cfg), plot.WithLogger(log))
	if err != nil {
		return nil, err
	}
	m := meter.New(player.OutputSampleRate, player.OutputChannels, meter.DefaultWindow)
	if err := p.StartUpdate(meterSource{m}, plot.SourcePlayer); err != nil {
		return nil, err
	}

	chunk := make([]byte, bytesFor(time.Second/time.Duration(opts.FPS)))
	ticks := 0
	for ; ticks < opts.Frames; ticks++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := io.ReadFull(stream, chunk)
		if n > 0 {
			_, _ = m.Write(chunk[:n])
		}
		clock.Tick()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				ticks++
				break
			}
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	level := m.AveragePower(0)

	img := surface.NewImage(opts.Width, opts.Height)
	p.Draw(img, img.Bounds())
	p.StopUpdate()

	log.Debug("snapshot rendered",
		zap.String("path", path),
		zap.Int("ticks", ticks),
		zap.Float64("level_db", level))

	if opts.Label && opts.Height > labelHeight+labelMargin {
		if err := img.Label(label(path, level), labelMargin, opts.Height-labelMargin, labelColor(cfg)); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// Write renders path and encodes it as PNG to out.
func Write(ctx context.Context, path, out string, cfg plot.Config, opts Options) error {
	img, err := Render(ctx, path, cfg, opts)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := img.EncodePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", out, err)
	}
	return f.Close()
}

func skip(r io.Reader, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, bytesFor(d)); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("offset %v is past the end of the file", d)
		}
		return err
	}
	return nil
}

func bytesFor(d time.Duration) int64 {
	frames := int64(d) * player.OutputSampleRate / int64(time.Second)
	return frames * player.OutputChannels * 2
}

func label(path string, db float64) string {
	meta := player.ReadMetadata(path)
	s := meta.Label() + "  " + util.FormatLevel(db, meter.MinPower)
	if info, err := os.Stat(path); err == nil {
		s += "  " + humanize.Bytes(uint64(info.Size()))
	}
	return s
}

func labelColor(cfg plot.Config) color.Color {
	if cfg.WaveColor != nil {
		return cfg.WaveColor
	}
	return color.Black
}
