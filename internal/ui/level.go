package ui

import (
	"math"
	"time"

	"github.com/charmbracelet/harmonica"

	"github.com/olivier-w/wavecap/internal/meter"
	"github.com/olivier-w/wavecap/internal/plot"
)

const (
	levelFrequency = 6.0
	levelDamping   = 0.8

	// peakHold is how long a peak reading stays on screen before a lower
	// one may replace it.
	peakHold = 3 * time.Second
)

// levelMeter smooths the normalized power level with a spring so the bar
// eases between frames instead of jumping, and holds the loudest recent
// peak.
type levelMeter struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
	db     float64
	peak   float64
	peakAt time.Time
}

func newLevelMeter(fps int) levelMeter {
	return levelMeter{
		spring: harmonica.NewSpring(harmonica.FPS(fps), levelFrequency, levelDamping),
		peak:   meter.MinPower,
	}
}

// step advances one frame toward the level of db and updates the held peak.
func (l *levelMeter) step(db, peak float64, now time.Time) {
	l.db = db
	l.pos, l.vel = l.spring.Update(l.pos, l.vel, plot.Normalize(db))
	if l.pos < 0 {
		l.pos = 0
	}

	// 0 dB is the sources' no-signal value.
	if peak == 0 || math.IsNaN(peak) || peak < meter.MinPower {
		peak = meter.MinPower
	}
	if peak >= l.peak || now.Sub(l.peakAt) > peakHold {
		l.peak = peak
		l.peakAt = now
	}
}

func (l *levelMeter) reset() {
	l.pos, l.vel, l.db = 0, 0, 0
	l.peak, l.peakAt = meter.MinPower, time.Time{}
}
