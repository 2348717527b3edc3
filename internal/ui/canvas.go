package ui

import (
	"image/color"

	"github.com/olivier-w/wavecap/internal/config"
	"github.com/olivier-w/wavecap/internal/plot"
	"github.com/olivier-w/wavecap/internal/surface"
)

// themeWave replaces the default black wave, which is invisible on most
// terminal backgrounds.
var themeWave = color.NRGBA{R: 0x5f, G: 0xaf, B: 0xff, A: 0xff}

const (
	minWaveRows = 3
	maxWaveRows = 12
	chromeRows  = 12
)

// canvas owns the braille surface and caches its rendering until the plot
// invalidates it.
type canvas struct {
	surface *surface.Braille
	dirty   bool
	view    string
}

func newCanvas(cols, rows int) *canvas {
	return &canvas{surface: surface.NewBraille(cols, rows), dirty: true}
}

func (c *canvas) invalidate() { c.dirty = true }

func (c *canvas) resize(width, height int) {
	cols := width - 4
	if cols < 10 {
		cols = 10
	}
	rows := height - chromeRows
	if rows < minWaveRows {
		rows = minWaveRows
	}
	if rows > maxWaveRows {
		rows = maxWaveRows
	}
	c.surface.Resize(cols, rows)
	c.dirty = true
}

func (c *canvas) render(p *plot.Plot) string {
	if c.dirty {
		p.Draw(c.surface, c.surface.Bounds())
		c.view = c.surface.String()
		c.dirty = false
	}
	return c.view
}

// terminalPlotConfig adapts the configured wave for a terminal: the
// background is left to the terminal and a black wave gets the theme color.
func terminalPlotConfig(cfg *config.Config) (plot.Config, error) {
	pc, err := cfg.PlotConfig()
	if err != nil {
		return plot.Config{}, err
	}
	if r, g, b, _ := pc.WaveColor.RGBA(); r == 0 && g == 0 && b == 0 {
		pc.WaveColor = themeWave
	}
	pc.Background = nil
	return pc, nil
}
