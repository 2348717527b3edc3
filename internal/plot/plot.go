// Package plot draws a multi-line animated waveform whose height follows a
// live power level read once per frame from a player or recorder.
//
// A Plot is not safe for concurrent use. Ticks, StartUpdate and StopUpdate
// must all run on the goroutine that owns the Plot.
package plot

import (
	"errors"
	"image"
	"math"

	"go.uber.org/zap"
)

// ErrNoSource is returned by StartUpdate without a usable level source.
var ErrNoSource = errors.New("plot: no level source")

// SourceKind identifies which kind of level source drives the plot.
type SourceKind uint8

const (
	SourceNone SourceKind = iota
	SourceRecorder
	SourcePlayer
)

func (k SourceKind) String() string {
	switch k {
	case SourceRecorder:
		return "recorder"
	case SourcePlayer:
		return "player"
	default:
		return "none"
	}
}

// LevelSource reports the current power of an audio stream in decibels.
// UpdateMeters refreshes the snapshot AveragePower reads from.
type LevelSource interface {
	UpdateMeters()
	AveragePower(channel int) float64
}

// Plot is the waveform renderer state.
type Plot struct {
	cfg       Config
	amplitude float64
	phase     float64

	clock  Clock
	sub    Subscription
	source LevelSource
	kind   SourceKind

	invalidate func()
	log        *zap.Logger
}

// Option configures a Plot.
type Option func(*Plot)

// WithInvalidate sets the callback used to request a redraw. It is called once
// per update and must not draw synchronously.
func WithInvalidate(fn func()) Option {
	return func(p *Plot) { p.invalidate = fn }
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(p *Plot) {
		if l != nil {
			p.log = l
		}
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(p *Plot) { p.cfg = cfg }
}

// New creates a plot driven by clock.
func New(clock Clock, opts ...Option) (*Plot, error) {
	p := &Plot{
		cfg:        DefaultConfig(),
		amplitude:  1,
		clock:      clock,
		invalidate: func() {},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Configure swaps the configuration after validating it.
func (p *Plot) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.cfg = cfg
	return nil
}

func (p *Plot) Config() Config     { return p.cfg }
func (p *Plot) Amplitude() float64 { return p.amplitude }
func (p *Plot) Phase() float64     { return p.phase }
func (p *Plot) Source() SourceKind { return p.kind }
func (p *Plot) Active() bool       { return p.sub != nil }

// UpdateWithPowerLevel advances the animation by one step using a raw meter
// reading in decibels, then requests a redraw.
func (p *Plot) UpdateWithPowerLevel(decibels float64) {
	level := Normalize(decibels)

	p.phase += p.cfg.PhaseShift
	p.amplitude = math.Max(level, p.cfg.IdleAmplitude)

	p.invalidate()
}

// StartUpdate makes src drive the plot once per clock frame. A running update
// loop is stopped first, exactly as StopUpdate would, so restarting an active
// plot and stopping then starting it leave the same state.
func (p *Plot) StartUpdate(src LevelSource, kind SourceKind) error {
	if src == nil || kind == SourceNone {
		return ErrNoSource
	}
	if p.sub != nil {
		p.StopUpdate()
	}

	p.source = src
	p.kind = kind
	p.sub = p.clock.Subscribe(p.updateMeters)
	p.log.Debug("plot update started", zap.Stringer("source", kind))
	return nil
}

// StopUpdate returns the plot to idle and detaches the level source. It is a
// no-op beyond the idle reset when nothing is running.
func (p *Plot) StopUpdate() {
	p.UpdateWithPowerLevel(0)

	if p.sub != nil {
		p.sub.Cancel()
		p.sub = nil
		p.log.Debug("plot update stopped", zap.Stringer("source", p.kind))
	}
	p.source = nil
	p.kind = SourceNone
}

func (p *Plot) updateMeters() {
	switch p.kind {
	case SourceNone:
		return
	case SourcePlayer, SourceRecorder:
		if p.source == nil {
			return
		}
		p.source.UpdateMeters()
		p.UpdateWithPowerLevel(p.source.AveragePower(0))
	}
}

// Draw paints the current state into r. It does not modify the plot.
func (p *Plot) Draw(s Surface, r image.Rectangle) {
	s.Clear(r)
	if p.cfg.Background != nil {
		s.Fill(r, p.cfg.Background)
	}

	width := float64(r.Dx())
	height := float64(r.Dy())
	if width <= 0 || height <= 0 {
		return
	}

	halfHeight := height / 2
	midX := width / 2
	maxAmplitude := halfHeight - 1.0
	originX, originY := float64(r.Min.X), float64(r.Min.Y)
	n := p.cfg.NumberOfWaves

	for i := 0; i < n; i++ {
		lineWidth := p.cfg.SecondaryLineWidth
		if i == 0 {
			lineWidth = p.cfg.PrimaryLineWidth
		}

		// progress runs from 1 for the front wave toward 0 for the last one.
		progress := 1.0 - float64(i)/float64(n)
		normalizedAmplitude := (1.5*progress - 0.5) * p.amplitude
		alpha := math.Min(1.0, progress/3*2+1.0/3)

		first := true
		for x := 0.0; x < width; x += p.cfg.Density {
			scaling := -math.Pow((x-midX)/midX, 2) + 1
			y := scaling*maxAmplitude*normalizedAmplitude*
				math.Sin(2*math.Pi*(x/width)*p.cfg.Frequency+p.phase) + halfHeight

			if first {
				s.MoveTo(originX+x, originY+y)
				first = false
			} else {
				s.LineTo(originX+x, originY+y)
			}
		}
		s.Stroke(lineWidth, WithAlpha(p.cfg.WaveColor, alpha))
	}
}
